package question

// Kind discriminates the Question variants. Every consumer switches over all
// four kinds and treats anything else as an error.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindMultipleAnswer Kind = "multiple_answer"
	KindEssay          Kind = "essay"
	KindShortAnswer    Kind = "short_answer"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindMultipleAnswer, KindEssay, KindShortAnswer:
		return true
	}
	return false
}

type Answer struct {
	Text     string  `json:"text"`
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

// NewAnswer builds a generated answer: score 1 when correct, 0 otherwise.
func NewAnswer(text string, correct bool, feedback string) Answer {
	a := Answer{Text: text, Correct: correct, Feedback: feedback}
	if correct {
		a.Score = 1
	}
	return a
}

type Question struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"` // markup

	AudioFile    string `json:"audio_file,omitempty"` // archive-relative under media/, empty when absent
	TestID       string `json:"test_id"`
	ItemPosition int    `json:"item_position,omitempty"` // captured, not used for ordering
	ItemID       string `json:"item_id"`

	// MultipleChoice, MultipleAnswer; ShortAnswer carries its single expected response here.
	Answers []Answer `json:"answers,omitempty"`
	// Essay only; empty when the source has no rubric.
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// Clone returns a deep copy so transforms never share the Answers backing array.
func (q Question) Clone() Question {
	out := q
	if q.Answers != nil {
		out.Answers = make([]Answer, len(q.Answers))
		copy(out.Answers, q.Answers)
	}
	return out
}

func (q Question) CorrectCount() int {
	n := 0
	for _, a := range q.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}
