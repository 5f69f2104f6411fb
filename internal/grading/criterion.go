package grading

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/sara-edu/sara-grading-api/internal/models"
	"github.com/sara-edu/sara-grading-api/pkg/ai"
)

// sentinelFeedback marks results produced in place of a failed external
// evaluation. Submissions carrying one are flagged for mandatory
// instructor review.
const sentinelFeedback = "Automated evaluation was unavailable for this criterion; it requires manual review."

// CriterionEvaluator calls the external evaluator for one rubric
// criterion and deterministically validates its output. For calculation
// criteria the partial-credit ladder overrides the raw score whenever
// the evaluator's classification disagrees with the numeric checks.
// Safe for concurrent use.
type CriterionEvaluator struct {
	evaluator ai.Evaluator
	timeout   time.Duration
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewCriterionEvaluator constructs a criterion evaluator. A zero
// timeout disables the per-call deadline.
func NewCriterionEvaluator(evaluator ai.Evaluator, timeout time.Duration, logger zerolog.Logger) *CriterionEvaluator {
	return &CriterionEvaluator{
		evaluator: evaluator,
		timeout:   timeout,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "criterion_evaluator").Logger(),
	}
}

// Evaluate produces the validated result for one criterion. It never
// returns an error: evaluator failures and timeouts degrade to a
// sentinel result so one broken criterion cannot abort the rest of the
// submission.
func (e *CriterionEvaluator) Evaluate(ctx context.Context, criterion models.RubricCriterion, answerText string) CriterionResult {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	outcome, err := e.evaluator.EvaluateCriterion(ctx, ai.CriterionInput{
		CriterionID:      criterion.ID,
		Kind:             string(criterion.Kind),
		Title:            criterion.Title,
		Descriptors:      descriptors(criterion),
		ExpectedFormula:  criterion.ExpectedFormula,
		ExpectedUnit:     criterion.ExpectedUnit,
		ExpectedValue:    criterion.ExpectedValue,
		TolerancePercent: criterion.TolerancePercent,
		AnswerText:       answerText,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("criterion_id", criterion.ID).Msg("external evaluation failed, emitting sentinel result")
		return sentinelResult(criterion.ID)
	}

	outcome.Feedback = e.sanitizer.Sanitize(strings.TrimSpace(outcome.Feedback))

	if criterion.HasCalculationSpec() {
		return e.evaluateCalculation(criterion, answerText, outcome)
	}
	return evaluateConceptual(criterion, outcome)
}

func sentinelResult(criterionID string) CriterionResult {
	return CriterionResult{
		CriterionID: criterionID,
		RawScore:    0,
		Level:       models.LevelInsufficient,
		Feedback:    sentinelFeedback,
		Sentinel:    true,
	}
}

// evaluateCalculation applies the deterministic validation layer: the
// checks select the score band, the evaluator's raw score only picks
// the position inside it.
func (e *CriterionEvaluator) evaluateCalculation(criterion models.RubricCriterion, answerText string, outcome ai.CriterionOutcome) CriterionResult {
	expected := *criterion.ExpectedValue
	tolerance := criterion.TolerancePercent

	numeric := outcome.NumericExtracted
	if numeric == nil {
		// The evaluator omitted the extraction; re-scan the raw answer.
		numeric = extractNumeric(answerText, expected)
	}

	lo, hi := toleranceBand(expected, tolerance)
	within := numeric != nil && *numeric >= lo && *numeric <= hi

	formula := boolSignal(outcome.FormulaPresent)
	units := boolSignal(outcome.UnitsCorrect)
	explanation := boolSignal(outcome.ExplanationPresent)

	// Minor, clearly isolated arithmetic slip: the value misses the
	// tolerance band but lands inside the doubled band while method and
	// units check out.
	minorSlip := false
	if numeric != nil && !within && formula && units {
		slipLo, slipHi := toleranceBand(expected, 2*tolerance)
		minorSlip = *numeric >= slipLo && *numeric <= slipHi
	}

	var band scoreBand
	switch {
	case within && formula && units && explanation:
		band = bandExcellent
	case (within || minorSlip) && formula && units:
		band = bandGood
	case (formula && numeric != nil && !within) || (within && (!units || !formula)):
		band = bandSatisfactory
	case formula || numeric != nil:
		band = bandMethodOnly
	default:
		band = bandInsufficient
	}

	naive := bandInsufficient
	if within {
		naive = bandExcellent
	}

	score := band.clamp(outcome.Score)
	return CriterionResult{
		CriterionID: criterion.ID,
		RawScore:    score,
		Level:       LevelForCriterionScore(score),
		Feedback:    outcome.Feedback,
		CalculationCheck: &CalculationCheck{
			NumericExtracted:     numeric,
			WithinTolerance:      within,
			FormulaPresent:       formula,
			UnitsCorrect:         units,
			ExplanationPresent:   explanation,
			PartialCreditApplied: band != naive,
		},
	}
}

// evaluateConceptual takes the evaluator's verdict as authoritative but
// clamps the score into the declared level's band so conceptual and
// calculation criteria share consistent boundaries. No calculation
// check is attached; its absence distinguishes the criterion kinds
// downstream.
func evaluateConceptual(criterion models.RubricCriterion, outcome ai.CriterionOutcome) CriterionResult {
	level := models.PerformanceLevel(outcome.Level)
	switch level {
	case models.LevelExcellent, models.LevelGood, models.LevelSatisfactory, models.LevelInsufficient:
	default:
		level = LevelForCriterionScore(int(outcome.Score + 0.5))
	}

	score := bandForLevel(level).clamp(outcome.Score)
	return CriterionResult{
		CriterionID: criterion.ID,
		RawScore:    score,
		Level:       level,
		Feedback:    outcome.Feedback,
	}
}

// toleranceBand returns the inclusive acceptance interval around the
// expected value, ordered even for negative expectations.
func toleranceBand(expected, tolerancePercent float64) (float64, float64) {
	delta := math.Abs(expected) * tolerancePercent / 100
	return expected - delta, expected + delta
}

func boolSignal(value *bool) bool {
	return value != nil && *value
}

var numericTokenPattern = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?(?:[eE][-+]?\d+)?`)

// extractNumeric scans the answer text for numeric tokens and returns
// the one closest to the expected value, tolerating comma decimal
// separators. Returns nil when the answer contains no number.
func extractNumeric(answerText string, expected float64) *float64 {
	tokens := numericTokenPattern.FindAllString(answerText, -1)
	if len(tokens) == 0 {
		return nil
	}

	var best *float64
	for _, token := range tokens {
		value, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64)
		if err != nil {
			continue
		}
		v := value
		if best == nil || math.Abs(v-expected) < math.Abs(*best-expected) {
			best = &v
		}
	}
	return best
}

func descriptors(criterion models.RubricCriterion) ai.LevelDescriptors {
	return ai.LevelDescriptors{
		Excellent:    criterion.DescExcellent,
		Good:         criterion.DescGood,
		Satisfactory: criterion.DescSatisfactory,
		Insufficient: criterion.DescInsufficient,
	}
}
