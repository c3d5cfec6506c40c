package sda

import (
	"strconv"
	"strings"

	"github.com/v-hunt/trunity-importer/internal/warnings"
	"github.com/v-hunt/trunity-importer/internal/xmltree"
)

// preValidate rejects items missing the containers extraction needs. All
// checks run so every problem is reported.
func preValidate(item *xmltree.Node, kind, itemID string, w *warnings.Collector) bool {
	valid := true
	require := func(tag string) {
		if _, ok := item.Child(tag); !ok {
			w.Add(itemID, "No "+tag+" tag found!")
			valid = false
		}
	}

	if _, err := atoi(itemID); err != nil {
		w.Addf(itemID, "Item id is not numeric: %v", err)
		valid = false
	}
	require("display_text")
	switch kind {
	case "MultipleChoice":
		require("distractors")
	case "ConstructedResponse":
		require("rubric_text")
	}
	return valid
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
