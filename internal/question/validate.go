package question

import "github.com/v-hunt/trunity-importer/internal/warnings"

// PostValidate performs the semantic checks the source XML cannot guarantee.
// A rejected question gets a warning and must be dropped by the caller.
func PostValidate(q Question, w *warnings.Collector) bool {
	switch q.Kind {
	case KindMultipleChoice:
		if q.CorrectCount() != 1 {
			w.Add(q.ItemID, "Question has not exactly one True answer!")
			return false
		}
	case KindMultipleAnswer:
		if q.CorrectCount() == 0 {
			w.Add(q.ItemID, "Question has all False answers!")
			return false
		}
	}
	return true
}
