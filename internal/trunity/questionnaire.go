package trunity

import (
	"context"
	"net/http"

	"github.com/v-hunt/trunity-importer/internal/question"
)

// Questionnaire accumulates the questions of one pool until it is uploaded.
// The zero value is ready to use.
type Questionnaire struct {
	Questions []QuestionPayload `json:"questions"`
}

type QuestionPayload struct {
	Type          string          `json:"type"`
	Text          string          `json:"text"`
	Answers       []AnswerPayload `json:"answers,omitempty"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
	Score         float64         `json:"score,omitempty"`
}

type AnswerPayload struct {
	Text     string  `json:"text"`
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

func (q *Questionnaire) AddMultipleChoice(text string, answers []question.Answer) {
	q.Questions = append(q.Questions, QuestionPayload{Type: "multiple_choice", Text: text, Answers: answerPayloads(answers)})
}

func (q *Questionnaire) AddMultipleAnswer(text string, answers []question.Answer) {
	q.Questions = append(q.Questions, QuestionPayload{Type: "multiple_answer", Text: text, Answers: answerPayloads(answers)})
}

func (q *Questionnaire) AddEssay(text, correctAnswer string, score float64) {
	q.Questions = append(q.Questions, QuestionPayload{Type: "essay", Text: text, CorrectAnswer: correctAnswer, Score: score})
}

func (q *Questionnaire) Len() int { return len(q.Questions) }

func answerPayloads(in []question.Answer) []AnswerPayload {
	out := make([]AnswerPayload, 0, len(in))
	for _, a := range in {
		out = append(out, AnswerPayload{Text: a.Text, Correct: a.Correct, Score: a.Score, Feedback: a.Feedback})
	}
	return out
}

// UploadQuestionnaire commits q as the content of the question pool id.
func (c *Client) UploadQuestionnaire(ctx context.Context, id int, q *Questionnaire) error {
	return c.sendJSON(ctx, "upload questionnaire", http.MethodPut, c.endpoint("/questionnaires/%d", id), q, nil)
}
