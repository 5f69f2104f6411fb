package grading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sara-edu/sara-grading-api/internal/models"
	"github.com/sara-edu/sara-grading-api/pkg/ai"
)

type fakeEvaluator struct {
	outcome ai.CriterionOutcome
	err     error
	delay   time.Duration
}

func (f *fakeEvaluator) EvaluateCriterion(ctx context.Context, input ai.CriterionInput) (ai.CriterionOutcome, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ai.CriterionOutcome{}, ctx.Err()
		}
	}
	if f.err != nil {
		return ai.CriterionOutcome{}, f.err
	}
	return f.outcome, nil
}

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

func calculationCriterion() models.RubricCriterion {
	return models.RubricCriterion{
		ID:               "c1",
		Kind:             models.CriterionCalculation,
		Title:            "Force calculation",
		Weight:           0.5,
		ExpectedValue:    floatPtr(42.0),
		TolerancePercent: 5,
		ExpectedFormula:  "F = m * a",
		ExpectedUnit:     "N",
	}
}

func conceptualCriterion() models.RubricCriterion {
	return models.RubricCriterion{
		ID:     "c2",
		Kind:   models.CriterionConceptual,
		Title:  "Conceptual reasoning",
		Weight: 0.5,
	}
}

func newEvaluator(fake ai.Evaluator, timeout time.Duration) *CriterionEvaluator {
	return NewCriterionEvaluator(fake, timeout, zerolog.Nop())
}

func TestEvaluateFullyCorrectAnswerKeepsRawScore(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:              95,
		Feedback:           "Correct method and result.",
		NumericExtracted:   floatPtr(42.0),
		FormulaPresent:     boolPtr(true),
		UnitsCorrect:       boolPtr(true),
		ExplanationPresent: boolPtr(true),
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "F = m*a = 42 N because ...")

	require.Equal(t, 95, result.RawScore)
	require.Equal(t, models.LevelExcellent, result.Level)
	require.False(t, result.Sentinel)
	require.NotNil(t, result.CalculationCheck)
	require.True(t, result.CalculationCheck.WithinTolerance)
	require.False(t, result.CalculationCheck.PartialCreditApplied)
}

func TestEvaluateMinorSlipClampsIntoGoodBand(t *testing.T) {
	// 38.5 misses the 5% band [39.9, 44.1] but sits inside the doubled
	// band with correct formula and units.
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:            95,
		NumericExtracted: floatPtr(38.5),
		FormulaPresent:   boolPtr(true),
		UnitsCorrect:     boolPtr(true),
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "F = m*a = 38.5 N")

	require.Equal(t, 84, result.RawScore)
	require.Equal(t, models.LevelGood, result.Level)
	require.True(t, result.CalculationCheck.PartialCreditApplied)
	require.False(t, result.CalculationCheck.WithinTolerance)
}

func TestEvaluateCorrectMethodWrongResult(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:            20,
		NumericExtracted: floatPtr(420.0),
		FormulaPresent:   boolPtr(true),
		UnitsCorrect:     boolPtr(true),
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "F = m*a = 420 N")

	// Way outside even the doubled band: satisfactory, lifted from the
	// evaluator's raw 20.
	require.Equal(t, 50, result.RawScore)
	require.Equal(t, models.LevelSatisfactory, result.Level)
	require.True(t, result.CalculationCheck.PartialCreditApplied)
}

func TestEvaluateWithinToleranceWithoutFormula(t *testing.T) {
	criterion := models.RubricCriterion{
		ID:               "c-density",
		Kind:             models.CriterionCalculation,
		Title:            "Density calculation",
		Weight:           0.5,
		ExpectedValue:    floatPtr(36.5),
		TolerancePercent: 5,
		ExpectedUnit:     "g/cm3",
	}

	// 37.0 sits inside the 5% band [34.675, 38.325] but no working is
	// shown: a bare result caps at satisfactory.
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:            92,
		NumericExtracted: floatPtr(37.0),
		FormulaPresent:   boolPtr(false),
		UnitsCorrect:     boolPtr(true),
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), criterion, "The density is 37.0 g/cm3")

	require.Equal(t, 69, result.RawScore)
	require.Equal(t, models.LevelSatisfactory, result.Level)
	require.True(t, result.CalculationCheck.WithinTolerance)
	require.True(t, result.CalculationCheck.PartialCreditApplied)
}

func TestEvaluateCorrectValueMissingUnits(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:            90,
		NumericExtracted: floatPtr(42.0),
		FormulaPresent:   boolPtr(true),
		UnitsCorrect:     boolPtr(false),
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "F = m*a = 42")

	require.Equal(t, 69, result.RawScore)
	require.Equal(t, models.LevelSatisfactory, result.Level)
	require.True(t, result.CalculationCheck.PartialCreditApplied)
}

func TestEvaluateFormulaOnlyLandsInMethodBand(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:          60,
		FormulaPresent: boolPtr(true),
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "I would use F = m*a here")

	require.Equal(t, 49, result.RawScore)
	require.Equal(t, models.LevelInsufficient, result.Level)
	require.True(t, result.CalculationCheck.PartialCreditApplied)
}

func TestEvaluateBlankAnswerIsInsufficient(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{Score: 40}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "no idea")

	require.LessOrEqual(t, result.RawScore, 29)
	require.Equal(t, models.LevelInsufficient, result.Level)
}

func TestEvaluateReExtractsNumericFromAnswer(t *testing.T) {
	// The evaluator omitted numeric extraction; the closest token to the
	// expected value must be recovered, comma decimal included.
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:          90,
		FormulaPresent: boolPtr(true),
		UnitsCorrect:   boolPtr(true),
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "Step 2: mass 3.5 kg gives F = 42,0 N")

	require.NotNil(t, result.CalculationCheck.NumericExtracted)
	require.InDelta(t, 42.0, *result.CalculationCheck.NumericExtracted, 1e-9)
	require.True(t, result.CalculationCheck.WithinTolerance)
}

func TestToleranceBandInclusiveAndNegative(t *testing.T) {
	lo, hi := toleranceBand(100, 5)
	require.Equal(t, 95.0, lo)
	require.Equal(t, 105.0, hi)

	lo, hi = toleranceBand(-40, 10)
	require.Equal(t, -44.0, lo)
	require.Equal(t, -36.0, hi)
	require.Less(t, lo, hi)
}

func TestEvaluateSentinelOnEvaluatorError(t *testing.T) {
	fake := &fakeEvaluator{err: errors.New("upstream unavailable")}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), calculationCriterion(), "F = 42 N")

	require.True(t, result.Sentinel)
	require.Equal(t, 0, result.RawScore)
	require.Equal(t, models.LevelInsufficient, result.Level)
	require.Equal(t, sentinelFeedback, result.Feedback)
	require.Nil(t, result.CalculationCheck)
}

func TestEvaluateSentinelOnTimeout(t *testing.T) {
	fake := &fakeEvaluator{delay: time.Second, outcome: ai.CriterionOutcome{Score: 90}}

	started := time.Now()
	result := newEvaluator(fake, 20*time.Millisecond).Evaluate(context.Background(), calculationCriterion(), "F = 42 N")

	require.True(t, result.Sentinel)
	require.Less(t, time.Since(started), time.Second)
}

func TestEvaluateConceptualClampsScoreIntoDeclaredBand(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{Score: 95, Level: "good", Feedback: "Solid reasoning."}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), conceptualCriterion(), "because energy is conserved")

	require.Equal(t, 84, result.RawScore)
	require.Equal(t, models.LevelGood, result.Level)
	require.Nil(t, result.CalculationCheck)
}

func TestEvaluateConceptualUnknownLevelFallsBackToScore(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{Score: 88, Level: "stellar"}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), conceptualCriterion(), "answer")

	require.Equal(t, models.LevelExcellent, result.Level)
	require.Equal(t, 88, result.RawScore)
}

func TestEvaluateSanitizesFeedback(t *testing.T) {
	fake := &fakeEvaluator{outcome: ai.CriterionOutcome{
		Score:    80,
		Level:    "good",
		Feedback: `Nice work <script>alert("x")</script> overall`,
	}}

	result := newEvaluator(fake, 0).Evaluate(context.Background(), conceptualCriterion(), "answer")

	require.NotContains(t, result.Feedback, "<script>")
	require.Contains(t, result.Feedback, "Nice work")
}
