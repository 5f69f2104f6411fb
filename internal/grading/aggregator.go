package grading

import (
	"errors"
	"fmt"
	"math"

	"github.com/sara-edu/sara-grading-api/internal/models"
)

// ErrMissingResult indicates a criterion has no result; aggregation is
// undefined until every criterion resolved.
var ErrMissingResult = errors.New("criterion result missing")

// ErrDuplicateResult indicates two results reference the same criterion.
var ErrDuplicateResult = errors.New("duplicate criterion result")

// ErrWeightSum indicates the rubric weights do not sum to one.
var ErrWeightSum = errors.New("criterion weights must sum to 1")

const weightTolerance = 1e-6

// Aggregate is the weighted roll-up of a submission's criterion results.
type Aggregate struct {
	FinalScore int                     `json:"final_score"`
	FinalLevel models.PerformanceLevel `json:"final_level"`
}

// AggregateResults combines per-criterion scores into the final
// submission score using the rubric weights. Missing or duplicate
// results and malformed weights are orchestration errors and fail
// loudly; callers must only invoke this once every criterion has a
// result, sentinel or not.
func AggregateResults(results []CriterionResult, criteria []models.RubricCriterion) (Aggregate, error) {
	byID := make(map[string]CriterionResult, len(results))
	for _, result := range results {
		if _, exists := byID[result.CriterionID]; exists {
			return Aggregate{}, fmt.Errorf("%w: %s", ErrDuplicateResult, result.CriterionID)
		}
		byID[result.CriterionID] = result
	}

	weightSum := 0.0
	for _, criterion := range criteria {
		weightSum += criterion.Weight
	}
	if math.Abs(weightSum-1.0) > weightTolerance {
		return Aggregate{}, fmt.Errorf("%w: got %.6f", ErrWeightSum, weightSum)
	}

	weighted := 0.0
	for _, criterion := range criteria {
		result, ok := byID[criterion.ID]
		if !ok {
			return Aggregate{}, fmt.Errorf("%w: %s", ErrMissingResult, criterion.ID)
		}
		weighted += float64(result.RawScore) * criterion.Weight
	}

	score := int(math.Round(weighted))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Aggregate{
		FinalScore: score,
		FinalLevel: models.LevelForFinalScore(score),
	}, nil
}
