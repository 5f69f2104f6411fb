package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestFinalScorePrefersManual(t *testing.T) {
	submission := Submission{AutomatedScore: intPtr(88), ManualScore: intPtr(65)}
	require.Equal(t, 65, *submission.FinalScore())

	automatedOnly := Submission{AutomatedScore: intPtr(88)}
	require.Equal(t, 88, *automatedOnly.FinalScore())

	require.Nil(t, Submission{}.FinalScore())
}

func TestFinalLevelFollowsFinalScore(t *testing.T) {
	submission := Submission{AutomatedScore: intPtr(88), ManualScore: intPtr(65)}
	require.Equal(t, LevelGood, *submission.FinalLevel())

	require.Nil(t, Submission{}.FinalLevel())
}

func TestLevelForFinalScoreBoundaries(t *testing.T) {
	require.Equal(t, LevelExcellent, LevelForFinalScore(80))
	require.Equal(t, LevelGood, LevelForFinalScore(79))
	require.Equal(t, LevelGood, LevelForFinalScore(60))
	require.Equal(t, LevelSatisfactory, LevelForFinalScore(59))
	require.Equal(t, LevelSatisfactory, LevelForFinalScore(40))
	require.Equal(t, LevelInsufficient, LevelForFinalScore(39))
}

func TestHasCalculationSpec(t *testing.T) {
	expected := 42.0
	withSpec := RubricCriterion{Kind: CriterionCalculation, ExpectedValue: &expected}
	require.True(t, withSpec.HasCalculationSpec())

	require.False(t, RubricCriterion{Kind: CriterionCalculation}.HasCalculationSpec())
	require.False(t, RubricCriterion{Kind: CriterionConceptual, ExpectedValue: &expected}.HasCalculationSpec())
}

func TestActivityWeightSum(t *testing.T) {
	activity := Activity{Criteria: []RubricCriterion{{Weight: 0.6}, {Weight: 0.4}}}
	require.InDelta(t, 1.0, activity.WeightSum(), 1e-9)
}
