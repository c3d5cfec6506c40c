package parser

import (
	"github.com/v-hunt/trunity-importer/internal/question"
	"github.com/v-hunt/trunity-importer/internal/warnings"
	"github.com/v-hunt/trunity-importer/internal/xmltree"
)

// preValidate checks that the elements extraction relies on exist for the
// detected kind.
func preValidate(kind question.Kind, doc, body *xmltree.Node, itemID string, w *warnings.Collector) bool {
	valid := true
	require := func(ok bool, msg string) {
		if !ok {
			w.Add(itemID, msg)
			valid = false
		}
	}

	switch kind {
	case question.KindMultipleChoice:
		require(body.Has("div"), "No div tag found in itemBody!")
		require(len(correctValues(doc)) > 0, "No correctResponse value found!")
	case question.KindMultipleAnswer:
		_, ok := findChoicePrompt(doc)
		require(ok, "No prompt tag found in choiceInteraction!")
		require(len(correctValues(doc)) > 0, "No correctResponse value found!")
	case question.KindEssay:
		require(body.Has("prompt"), "No prompt tag found in itemBody!")
	case question.KindShortAnswer:
		require(body.Has("div"), "No div tag found in itemBody!")
		require(len(correctValues(doc)) > 0, "No correctResponse value found!")
	}
	return valid
}
