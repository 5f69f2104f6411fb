package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// outcomeSchema validates the evaluator payload before it is decoded.
// The external model is duck-typed and occasionally malformed; schema
// validation rejects structurally broken responses early instead of
// laundering them into a score.
var outcomeSchema = jsonschema.MustCompileString("criterion_outcome.json", `{
	"type": "object",
	"required": ["score"],
	"properties": {
		"score": {"type": "number"},
		"level": {"type": "string"},
		"feedback": {"type": "string"},
		"numeric_value": {"type": ["number", "null"]},
		"has_formula": {"type": "boolean"},
		"has_correct_units": {"type": "boolean"},
		"has_explanation": {"type": "boolean"}
	}
}`)

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseOutcome decodes the evaluator's response content into a typed
// outcome. Models sometimes wrap the JSON object in prose or code
// fences, so a bare object is extracted as a fallback before giving up.
func parseOutcome(content string) (CriterionOutcome, error) {
	content = strings.TrimSpace(content)

	raw, err := decodeObject(content)
	if err != nil {
		extracted := jsonObjectPattern.FindString(content)
		if extracted == "" {
			return CriterionOutcome{}, fmt.Errorf("no json object in evaluator response")
		}
		raw, err = decodeObject(extracted)
		if err != nil {
			return CriterionOutcome{}, fmt.Errorf("parse evaluator json: %w", err)
		}
		content = extracted
	}

	if err := outcomeSchema.Validate(raw); err != nil {
		return CriterionOutcome{}, fmt.Errorf("evaluator response schema: %w", err)
	}

	var outcome CriterionOutcome
	if err := json.Unmarshal([]byte(content), &outcome); err != nil {
		return CriterionOutcome{}, fmt.Errorf("decode evaluator response: %w", err)
	}

	if outcome.Score < 0 {
		outcome.Score = 0
	}
	if outcome.Score > 100 {
		outcome.Score = 100
	}
	outcome.Level = strings.ToLower(strings.TrimSpace(outcome.Level))

	return outcome, nil
}

func decodeObject(content string) (interface{}, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, err
	}
	if _, ok := raw.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("evaluator response is not an object")
	}
	return raw, nil
}
