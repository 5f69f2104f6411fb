package grading

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sara-edu/sara-grading-api/internal/models"
)

func criteria(weights ...float64) []models.RubricCriterion {
	list := make([]models.RubricCriterion, 0, len(weights))
	for i, weight := range weights {
		list = append(list, models.RubricCriterion{
			ID:     string(rune('a' + i)),
			Kind:   models.CriterionConceptual,
			Weight: weight,
		})
	}
	return list
}

func resultsFor(scores ...int) []CriterionResult {
	list := make([]CriterionResult, 0, len(scores))
	for i, score := range scores {
		list = append(list, CriterionResult{
			CriterionID: string(rune('a' + i)),
			RawScore:    score,
			Level:       LevelForCriterionScore(score),
		})
	}
	return list
}

func TestAggregateWeightedRollUp(t *testing.T) {
	aggregate, err := AggregateResults(resultsFor(100, 50), criteria(0.7, 0.3))

	require.NoError(t, err)
	require.Equal(t, 85, aggregate.FinalScore)
	require.Equal(t, models.LevelExcellent, aggregate.FinalLevel)
}

func TestAggregateRoundsHalfUp(t *testing.T) {
	// Two perfect criteria and one zero at equal thirds: 66.67 rounds to
	// 67, good tier.
	aggregate, err := AggregateResults(resultsFor(100, 100, 0), criteria(1.0/3, 1.0/3, 1.0/3))

	require.NoError(t, err)
	require.Equal(t, 67, aggregate.FinalScore)
	require.Equal(t, models.LevelGood, aggregate.FinalLevel)
}

func TestAggregateFinalLevelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		level models.PerformanceLevel
	}{
		{80, models.LevelExcellent},
		{79, models.LevelGood},
		{60, models.LevelGood},
		{59, models.LevelSatisfactory},
		{40, models.LevelSatisfactory},
		{39, models.LevelInsufficient},
		{0, models.LevelInsufficient},
	}
	for _, tc := range cases {
		aggregate, err := AggregateResults(resultsFor(tc.score), criteria(1.0))
		require.NoError(t, err)
		require.Equal(t, tc.level, aggregate.FinalLevel, "score %d", tc.score)
	}
}

func TestAggregateRejectsMissingResult(t *testing.T) {
	_, err := AggregateResults(resultsFor(100), criteria(0.5, 0.5))

	require.ErrorIs(t, err, ErrMissingResult)
}

func TestAggregateRejectsDuplicateResult(t *testing.T) {
	duplicated := resultsFor(100)
	duplicated = append(duplicated, duplicated[0])

	_, err := AggregateResults(duplicated, criteria(1.0))

	require.ErrorIs(t, err, ErrDuplicateResult)
}

func TestAggregateRejectsBadWeightSum(t *testing.T) {
	_, err := AggregateResults(resultsFor(100, 50), criteria(0.5, 0.4))

	require.ErrorIs(t, err, ErrWeightSum)
}

func TestAggregateAcceptsWeightSumWithinTolerance(t *testing.T) {
	_, err := AggregateResults(resultsFor(80, 80, 80), criteria(1.0/3, 1.0/3, 1.0/3))

	require.NoError(t, err)
}

func TestAggregateSentinelResultsCountAsZero(t *testing.T) {
	results := resultsFor(100)
	results = append(results, CriterionResult{
		CriterionID: "b",
		RawScore:    0,
		Level:       models.LevelInsufficient,
		Sentinel:    true,
	})

	aggregate, err := AggregateResults(results, criteria(0.5, 0.5))

	require.NoError(t, err)
	require.Equal(t, 50, aggregate.FinalScore)
}
