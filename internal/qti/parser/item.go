package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/question"
	"github.com/v-hunt/trunity-importer/internal/warnings"
	"github.com/v-hunt/trunity-importer/internal/xmltree"
)

// ItemRef locates one item file inside its questionnaire.
type ItemRef struct {
	File     string // name from assessmentItemRef; fallback item id
	TestID   string
	Position int // 1-based
}

// ParseItem classifies and extracts one assessmentItem. ok is false when the
// item was skipped; the reason is recorded in w. err is reserved for
// unreadable XML.
func ParseItem(ref ItemRef, r io.Reader, w *warnings.Collector) (q question.Question, ok bool, err error) {
	doc, err := xmltree.Parse(r)
	if err != nil {
		return question.Question{}, false, fmt.Errorf("item %s: %w", ref.File, err)
	}
	itemID := ref.File
	if root, found := doc.Find("assessmentItem"); found {
		itemID = root.AttrOr("identifier", ref.File)
	}

	kind, known := DetectKind(doc)
	if !known {
		w.Add(itemID, "Question type is unknown or parser is not yet implemented!")
		return question.Question{}, false, nil
	}
	body, found := doc.Find("itemBody")
	if !found {
		w.Add(itemID, "No itemBody tag found!")
		return question.Question{}, false, nil
	}
	if !preValidate(kind, doc, body, itemID, w) {
		return question.Question{}, false, nil
	}

	flash := findFlash(body, itemID, w)
	q = question.Question{
		Kind:         kind,
		TestID:       ref.TestID,
		ItemPosition: ref.Position,
		ItemID:       itemID,
		AudioFile:    flash.audioFile,
	}

	switch kind {
	case question.KindMultipleChoice:
		div, _ := body.Find("div")
		q.Text = trimmed(div, flash.object)
		q.Answers = choiceAnswers(body, correctValues(doc)[:1])
	case question.KindMultipleAnswer:
		prompt, _ := findChoicePrompt(doc)
		q.Text = trimmed(prompt, flash.object)
		q.Answers = choiceAnswers(body, correctValues(doc))
	case question.KindEssay:
		prompt, _ := body.Find("prompt")
		q.Text = trimmed(prompt, flash.object)
		if rubric, found := body.Find("rubricBlock"); found {
			q.CorrectAnswer = trimmed(rubric, flash.object)
		}
	case question.KindShortAnswer:
		div, _ := body.Find("div")
		q.Text = trimmed(div, flash.object)
		q.Answers = []question.Answer{question.NewAnswer(correctValues(doc)[0], true, "")}
	default:
		return question.Question{}, false, fmt.Errorf("item %s: unhandled kind %q", itemID, kind)
	}
	return q, true, nil
}

// DetectKind applies the structural checks in precedence order; the first
// match wins.
func DetectKind(doc *xmltree.Node) (question.Kind, bool) {
	switch {
	case doc.Has("extendedTextInteraction"):
		return question.KindEssay, true
	case doc.Has("simpleChoice") && cardinality(doc) == "single":
		return question.KindMultipleChoice, true
	case doc.Has("simpleChoice") && cardinality(doc) == "multiple":
		return question.KindMultipleAnswer, true
	case doc.Has("textEntryInteraction"):
		return question.KindShortAnswer, true
	}
	return "", false
}

func cardinality(doc *xmltree.Node) string {
	decl, ok := doc.Find("responseDeclaration")
	if !ok {
		return ""
	}
	return decl.AttrOr("cardinality", "")
}

func findChoicePrompt(doc *xmltree.Node) (*xmltree.Node, bool) {
	ci, ok := doc.Find("choiceInteraction")
	if !ok {
		return nil, false
	}
	return ci.Find("prompt")
}

// correctValues returns the trimmed <value> texts of the first correctResponse.
func correctValues(doc *xmltree.Node) []string {
	cr, ok := doc.Find("correctResponse")
	if !ok {
		return nil
	}
	var out []string
	for _, v := range cr.FindAll("value") {
		out = append(out, strings.TrimSpace(v.Text()))
	}
	return out
}

func choiceAnswers(body *xmltree.Node, correct []string) []question.Answer {
	set := make(map[string]bool, len(correct))
	for _, id := range correct {
		set[id] = true
	}
	var answers []question.Answer
	for _, c := range body.FindAll("simpleChoice") {
		id := strings.TrimSpace(c.AttrOr("identifier", ""))
		answers = append(answers, question.NewAnswer(strings.TrimSpace(c.InnerXML()), set[id], ""))
	}
	return answers
}

func trimmed(n *xmltree.Node, skip *xmltree.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.InnerXMLWithout(skip))
}
