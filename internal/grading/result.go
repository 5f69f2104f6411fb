package grading

import "github.com/sara-edu/sara-grading-api/internal/models"

// CalculationCheck records the deterministic numeric validation of a
// calculation criterion. Its absence on a result marks the criterion as
// conceptual.
type CalculationCheck struct {
	NumericExtracted     *float64 `json:"numeric_extracted"`
	WithinTolerance      bool     `json:"within_tolerance"`
	FormulaPresent       bool     `json:"formula_present"`
	UnitsCorrect         bool     `json:"units_correct"`
	ExplanationPresent   bool     `json:"explanation_present"`
	PartialCreditApplied bool     `json:"partial_credit_applied"`
}

// CriterionResult is the validated score for one (submission,
// criterion) pair. Produced once and never mutated; a re-evaluation
// yields a new result so the audit history stays intact.
type CriterionResult struct {
	CriterionID      string                  `json:"criterion_id"`
	RawScore         int                     `json:"raw_score"`
	Level            models.PerformanceLevel `json:"level"`
	Feedback         string                  `json:"feedback"`
	Sentinel         bool                    `json:"sentinel"`
	CalculationCheck *CalculationCheck       `json:"calculation_check,omitempty"`
}

// scoreBand is one rung of the partial-credit ladder.
type scoreBand struct {
	lo, hi int
	level  models.PerformanceLevel
}

var (
	bandExcellent    = scoreBand{85, 100, models.LevelExcellent}
	bandGood         = scoreBand{70, 84, models.LevelGood}
	bandSatisfactory = scoreBand{50, 69, models.LevelSatisfactory}
	bandMethodOnly   = scoreBand{30, 49, models.LevelInsufficient}
	bandInsufficient = scoreBand{0, 29, models.LevelInsufficient}
)

// clamp pins a raw evaluator score to the band chosen by the
// deterministic checks: the checks pick the band, the raw score picks
// the position inside it.
func (b scoreBand) clamp(raw float64) int {
	score := int(raw + 0.5)
	if score < b.lo {
		return b.lo
	}
	if score > b.hi {
		return b.hi
	}
	return score
}

// bandForLevel maps an evaluator-declared qualitative level to its
// criterion score band.
func bandForLevel(level models.PerformanceLevel) scoreBand {
	switch level {
	case models.LevelExcellent:
		return bandExcellent
	case models.LevelGood:
		return bandGood
	case models.LevelSatisfactory:
		return bandSatisfactory
	default:
		return scoreBand{0, 49, models.LevelInsufficient}
	}
}

// LevelForCriterionScore maps a per-criterion score to its rubric
// level using the 85/70/50 band boundaries.
func LevelForCriterionScore(score int) models.PerformanceLevel {
	switch {
	case score >= 85:
		return models.LevelExcellent
	case score >= 70:
		return models.LevelGood
	case score >= 50:
		return models.LevelSatisfactory
	default:
		return models.LevelInsufficient
	}
}
