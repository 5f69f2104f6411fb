package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOutcomeCleanObject(t *testing.T) {
	outcome, err := parseOutcome(`{
		"score": 85,
		"level": "Good",
		"feedback": "Correct approach.",
		"numeric_value": 42.0,
		"has_formula": true,
		"has_correct_units": true,
		"has_explanation": false
	}`)

	require.NoError(t, err)
	require.Equal(t, 85.0, outcome.Score)
	require.Equal(t, "good", outcome.Level)
	require.NotNil(t, outcome.NumericExtracted)
	require.Equal(t, 42.0, *outcome.NumericExtracted)
	require.True(t, *outcome.FormulaPresent)
	require.False(t, *outcome.ExplanationPresent)
}

func TestParseOutcomeExtractsObjectFromProse(t *testing.T) {
	outcome, err := parseOutcome("Here is my evaluation:\n```json\n{\"score\": 70, \"level\": \"good\"}\n```\nHope that helps!")

	require.NoError(t, err)
	require.Equal(t, 70.0, outcome.Score)
}

func TestParseOutcomeClampsScore(t *testing.T) {
	high, err := parseOutcome(`{"score": 140}`)
	require.NoError(t, err)
	require.Equal(t, 100.0, high.Score)

	low, err := parseOutcome(`{"score": -3}`)
	require.NoError(t, err)
	require.Equal(t, 0.0, low.Score)
}

func TestParseOutcomeRejectsMissingScore(t *testing.T) {
	_, err := parseOutcome(`{"level": "good"}`)

	require.Error(t, err)
}

func TestParseOutcomeRejectsNonObject(t *testing.T) {
	_, err := parseOutcome(`[1, 2, 3]`)
	require.Error(t, err)

	_, err = parseOutcome("the student did well")
	require.Error(t, err)
}

func TestParseOutcomeRejectsWrongTypes(t *testing.T) {
	_, err := parseOutcome(`{"score": "eighty"}`)

	require.Error(t, err)
}
