package ai

import "context"

// LevelDescriptors are the rubric's qualitative performance
// descriptions handed to the external evaluator.
type LevelDescriptors struct {
	Excellent    string
	Good         string
	Satisfactory string
	Insufficient string
}

// CriterionInput carries one rubric criterion and the student's answer
// text to the external evaluator.
type CriterionInput struct {
	CriterionID      string
	Kind             string
	Title            string
	Subject          string
	Descriptors      LevelDescriptors
	ExpectedFormula  string
	ExpectedUnit     string
	ExpectedValue    *float64
	TolerancePercent float64
	AnswerText       string
}

// CriterionOutcome is the evaluator's raw verdict for one criterion.
// Every signal beyond the score is optional: the payload is untrusted
// and the grading layer re-validates it deterministically.
type CriterionOutcome struct {
	Score              float64                `json:"score"`
	Level              string                 `json:"level"`
	Feedback           string                 `json:"feedback"`
	NumericExtracted   *float64               `json:"numeric_value,omitempty"`
	FormulaPresent     *bool                  `json:"has_formula,omitempty"`
	UnitsCorrect       *bool                  `json:"has_correct_units,omitempty"`
	ExplanationPresent *bool                  `json:"has_explanation,omitempty"`
	Raw                map[string]interface{} `json:"raw,omitempty"`
}

// Evaluator describes an AI model capable of scoring a student answer
// against a rubric criterion. Implementations must be safe for
// concurrent use and must honour context cancellation. Calls are not
// idempotent on qualitative criteria, so callers must not retry
// automatically without surfacing that to the instructor.
type Evaluator interface {
	EvaluateCriterion(ctx context.Context, input CriterionInput) (CriterionOutcome, error)
}
