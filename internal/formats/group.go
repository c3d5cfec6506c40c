package formats

import (
	"context"
	"fmt"

	"github.com/v-hunt/trunity-importer/internal/media"
	"github.com/v-hunt/trunity-importer/internal/question"
	"github.com/v-hunt/trunity-importer/internal/trunity"
	"github.com/v-hunt/trunity-importer/internal/warnings"
)

// UntitledPool replaces a missing or empty pool title.
const UntitledPool = "Untitled Question Pool"

// Group is the questions of one test_id, in arrival order.
type Group struct {
	TestID    string
	Questions []question.Question
}

// Groups accumulates questions per test_id. A group is created when its
// first question arrives and groups keep that order.
type Groups struct {
	order []*Group
	byID  map[string]*Group
}

func (g *Groups) Add(q question.Question) {
	if g.byID == nil {
		g.byID = make(map[string]*Group)
	}
	grp, ok := g.byID[q.TestID]
	if !ok {
		grp = &Group{TestID: q.TestID}
		g.byID[q.TestID] = grp
		g.order = append(g.order, grp)
	}
	grp.Questions = append(grp.Questions, q)
}

func (g *Groups) All() []*Group { return g.order }

func (g *Groups) Len() int { return len(g.order) }

// Accumulator runs the per-question tail of an import: post-validation,
// media resolution, grouping.
type Accumulator struct {
	Resolver *media.Resolver
	Warnings *warnings.Collector
	Groups   Groups
}

// Add drops q with a warning when it fails post-validation. Media errors
// abort the run.
func (a *Accumulator) Add(ctx context.Context, q question.Question) error {
	if !question.PostValidate(q, a.Warnings) {
		return nil
	}
	resolved, err := a.Resolver.Resolve(ctx, q)
	if err != nil {
		return err
	}
	a.Groups.Add(resolved)
	return nil
}

// AddToQuestionnaire appends q with the builder call for its kind.
// Short answers have no Trunity counterpart and go in as essays with the
// expected response as the model answer.
func AddToQuestionnaire(qn *trunity.Questionnaire, q question.Question) error {
	switch q.Kind {
	case question.KindMultipleChoice:
		qn.AddMultipleChoice(q.Text, q.Answers)
	case question.KindMultipleAnswer:
		qn.AddMultipleAnswer(q.Text, q.Answers)
	case question.KindEssay:
		qn.AddEssay(q.Text, q.CorrectAnswer, 1)
	case question.KindShortAnswer:
		expected := ""
		if len(q.Answers) > 0 {
			expected = q.Answers[0].Text
		}
		qn.AddEssay(q.Text, expected, 1)
	default:
		return fmt.Errorf("item %s: unsupported kind %q", q.ItemID, q.Kind)
	}
	return nil
}

// UploadPool creates a question pool for grp and commits its questions.
func UploadPool(ctx context.Context, env Env, bookID int, title string, topicID int, grp *Group) (Pool, error) {
	if title == "" {
		title = UntitledPool
	}
	var qn trunity.Questionnaire
	for _, q := range grp.Questions {
		if err := AddToQuestionnaire(&qn, q); err != nil {
			return Pool{}, err
		}
	}
	id, err := env.Remote.CreateQuestionPool(ctx, bookID, title, topicID)
	if err != nil {
		return Pool{}, err
	}
	if err := env.Remote.UploadQuestionnaire(ctx, id, &qn); err != nil {
		return Pool{}, err
	}
	env.Logger().Printf("uploaded pool %q id=%d topic=%d questions=%d", title, id, topicID, qn.Len())
	return Pool{TestID: grp.TestID, Title: title, TopicID: topicID, ContentID: id, Questions: qn.Len()}, nil
}
