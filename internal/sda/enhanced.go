package sda

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/v-hunt/trunity-importer/internal/question"
)

//go:embed mcq.schema.json
var mcqSchemaJSON string

var mcqSchema = jsonschema.MustCompileString("mcq.schema.json", mcqSchemaJSON)

// enhanced is the JSON payload a TechnologyEnhanced item keeps in its
// display_text. Only the multi-response mcq shape has a target question type.
type enhanced struct {
	Stimulus string `json:"stimulus"`
	Options  []struct {
		Label string `json:"label"`
		Value any    `json:"value"`
	} `json:"options"`
	Validation struct {
		ValidResponse struct {
			Value []any `json:"value"`
		} `json:"valid_response"`
	} `json:"validation"`
	Metadata struct {
		Rationales []string `json:"distractor_rationale_response_level"`
	} `json:"metadata"`
}

type unsupportedError struct{ shape string }

func (e *unsupportedError) Error() string {
	return "TechnologyEnhanced question is not supported - " + e.shape
}

// parseEnhanced decodes a TechnologyEnhanced payload into the multiple
// answer text and options.
func parseEnhanced(payload string) (string, []question.Answer, error) {
	var shape struct {
		Type              string `json:"type"`
		MultipleResponses bool   `json:"multiple_responses"`
	}
	if err := json.Unmarshal([]byte(payload), &shape); err != nil {
		return "", nil, fmt.Errorf("TechnologyEnhanced payload is not JSON: %v", err)
	}
	if !shape.MultipleResponses || shape.Type != "mcq" {
		return "", nil, &unsupportedError{shape: fmt.Sprintf("type=%q multiple_responses=%v", shape.Type, shape.MultipleResponses)}
	}

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return "", nil, fmt.Errorf("TechnologyEnhanced payload is not JSON: %v", err)
	}
	if err := mcqSchema.Validate(raw); err != nil {
		return "", nil, fmt.Errorf("TechnologyEnhanced payload: %v", err)
	}
	var e enhanced
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return "", nil, fmt.Errorf("TechnologyEnhanced payload: %v", err)
	}

	// Values are JSON strings or numbers, so 1 and "1" stay distinct.
	valid := make(map[any]bool, len(e.Validation.ValidResponse.Value))
	for _, v := range e.Validation.ValidResponse.Value {
		valid[v] = true
	}
	answers := make([]question.Answer, 0, len(e.Options))
	for i, opt := range e.Options {
		feedback := ""
		if i < len(e.Metadata.Rationales) {
			feedback = e.Metadata.Rationales[i]
		}
		answers = append(answers, question.NewAnswer(opt.Label, valid[opt.Value], feedback))
	}
	return e.Stimulus, answers, nil
}
