// Package sda reads Science Dimensions Assessments exports: a single
// XML_Export*.xml document holding every test and item of a program.
package sda

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/question"
	"github.com/v-hunt/trunity-importer/internal/warnings"
	"github.com/v-hunt/trunity-importer/internal/xmltree"
)

// ErrUnknownTest is returned for a test id the export does not declare.
var ErrUnknownTest = errors.New("unknown test id")

const TitleSuffix = " - Question Pool"

type Export struct {
	doc    *xmltree.Node
	titles map[string]string

	Grades Grades
}

// Parse reads the export document and indexes its tests.
func Parse(r io.Reader) (*Export, error) {
	doc, err := xmltree.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("sda export: %w", err)
	}
	e := &Export{
		doc:    doc,
		titles: make(map[string]string),
		Grades: Grades{byTest: make(map[string]string)},
	}
	for _, t := range doc.FindAll("test") {
		id, ok := t.Attr("test_id")
		if !ok {
			continue
		}
		e.titles[id] = strings.TrimSpace(t.AttrOr("test_name", ""))
		if grade, ok := ExtractGrade(t.AttrOr("activity_reference", "")); ok {
			e.Grades.byTest[id] = grade
		}
	}
	return e, nil
}

// QuestionnaireTitle is the pool title for a test. An empty title is
// returned as-is; callers choose the placeholder.
func (e *Export) QuestionnaireTitle(testID string) (string, error) {
	title, ok := e.titles[testID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTest, testID)
	}
	if title == "" {
		return "", nil
	}
	return title + TitleSuffix, nil
}

// Questions yields the supported items in document order. When keep is
// non-nil, items whose test id it rejects are skipped before validation and
// leave no warning. Rejected items leave a warning in w and are not yielded.
// Every range validates again and adds its warnings again, so range once
// per collector.
func (e *Export) Questions(w *warnings.Collector, keep func(testID string) bool) iter.Seq[question.Question] {
	return func(yield func(question.Question) bool) {
		for _, item := range e.doc.FindAll("item") {
			if keep != nil && !keep(itemTestID(item)) {
				continue
			}
			q, ok := parseItem(item, w)
			if !ok {
				continue
			}
			if !yield(q) {
				return
			}
		}
	}
}

// itemTestID is the test_info test id of an item, empty when absent.
func itemTestID(item *xmltree.Node) string {
	usage, ok := item.Child("test_usage")
	if !ok {
		return ""
	}
	info, ok := usage.Child("test_info")
	if !ok {
		return ""
	}
	return strings.TrimSpace(info.AttrOr("test_id", ""))
}

func parseItem(item *xmltree.Node, w *warnings.Collector) (question.Question, bool) {
	itemID := strings.TrimSpace(item.AttrOr("id", ""))
	kind := item.AttrOr("type", "")
	if !preValidate(item, kind, itemID, w) {
		return question.Question{}, false
	}

	switch kind {
	case "MultipleChoice", "ConstructedResponse", "TechnologyEnhanced":
	default:
		w.Add(itemID, "Question type is unknown - "+kind)
		return question.Question{}, false
	}

	q, ok := commonMeta(item, itemID, w)
	if !ok {
		return question.Question{}, false
	}

	switch kind {
	case "MultipleChoice":
		q.Kind = question.KindMultipleChoice
		distractors, _ := item.Child("distractors")
		for _, d := range distractors.FindAll("distractor") {
			q.Answers = append(q.Answers, distractorAnswer(d))
		}
	case "ConstructedResponse":
		q.Kind = question.KindEssay
		rubric, _ := item.Child("rubric_text")
		q.CorrectAnswer = content(rubric)
	case "TechnologyEnhanced":
		text, answers, err := parseEnhanced(q.Text)
		if err != nil {
			w.Add(itemID, err.Error())
			return question.Question{}, false
		}
		q.Kind = question.KindMultipleAnswer
		q.Text = text
		q.Answers = answers
	}
	return q, true
}

// commonMeta reads the fields every item type shares.
func commonMeta(item *xmltree.Node, itemID string, w *warnings.Collector) (question.Question, bool) {
	display, _ := item.Child("display_text")
	q := question.Question{Text: content(display), ItemID: itemID}

	if media, ok := item.Child("media_file"); ok {
		if id, ok := media.Attr("id"); ok && strings.TrimSpace(id) != "" {
			q.AudioFile = strings.TrimSpace(id)
		}
	}
	if q.AudioFile == "" {
		w.Add(itemID, "No audio file found")
	}

	usage, ok := item.Child("test_usage")
	var info *xmltree.Node
	if ok {
		info, ok = usage.Child("test_info")
	}
	if !ok {
		w.Add(itemID, "No test_info tag found!")
		return question.Question{}, false
	}
	q.TestID = strings.TrimSpace(info.AttrOr("test_id", ""))
	if q.TestID == "" {
		w.Add(itemID, "test_info without test_id!")
		return question.Question{}, false
	}
	pos, err := atoi(info.AttrOr("item_position", ""))
	if err != nil {
		w.Addf(itemID, "Bad item_position: %v", err)
		return question.Question{}, false
	}
	q.ItemPosition = pos
	return q, true
}

func distractorAnswer(d *xmltree.Node) question.Answer {
	var text, feedback string
	if n, ok := d.Child("display_text"); ok {
		text = content(n)
	}
	if n, ok := d.Child("rationale"); ok {
		feedback = content(n)
	}
	return question.NewAnswer(text, d.AttrOr("is_correct", "") == "True", feedback)
}

// content is the element's markup: CDATA text when it has no child
// elements, inner XML otherwise.
func content(n *xmltree.Node) string {
	if n == nil {
		return ""
	}
	if len(n.Children) > 0 {
		return strings.TrimSpace(n.InnerXML())
	}
	return strings.TrimSpace(n.Text())
}
