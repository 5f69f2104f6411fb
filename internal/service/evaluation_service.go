package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/sara-edu/sara-grading-api/internal/dto"
	"github.com/sara-edu/sara-grading-api/internal/grading"
	"github.com/sara-edu/sara-grading-api/internal/models"
	"github.com/sara-edu/sara-grading-api/internal/observability"
	"github.com/sara-edu/sara-grading-api/internal/repository"
)

// ErrSubmissionState indicates the submission is not in a status that
// allows the requested transition.
var ErrSubmissionState = errors.New("invalid submission status for operation")

// ErrNotEvaluated indicates a manual grade was attempted before the
// automated evaluation finished.
var ErrNotEvaluated = errors.New("submission has not been evaluated")

const (
	subjectEvaluated = "sara.grading.evaluated"
	subjectGraded    = "sara.grading.graded"
)

// EvaluationConfig tunes the evaluation service.
type EvaluationConfig struct {
	Concurrency int
}

// EvaluationService runs automated rubric evaluation and records manual
// instructor overrides.
type EvaluationService interface {
	Evaluate(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
	ManualGrade(ctx context.Context, submissionID, graderID uint, payload dto.ManualGradeRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, error)
	ActivityStats(ctx context.Context, activityID uint) (dto.ActivityStatsResponse, error)
}

type evaluationService struct {
	submissions repository.SubmissionRepository
	criterion   *grading.CriterionEvaluator
	nats        *nats.Conn
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	cfg         EvaluationConfig
	now         func() time.Time
}

type submissionEvent struct {
	SubmissionID uint      `json:"submission_id"`
	ActivityID   uint      `json:"activity_id"`
	StudentID    uint      `json:"student_id"`
	Score        int       `json:"score"`
	Level        string    `json:"level"`
	SentAt       time.Time `json:"sent_at"`
}

// NewEvaluationService constructs an evaluation service.
func NewEvaluationService(
	submissions repository.SubmissionRepository,
	criterion *grading.CriterionEvaluator,
	natsConn *nats.Conn,
	validate *validator.Validate,
	cfg EvaluationConfig,
	logger zerolog.Logger,
) EvaluationService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	return &evaluationService{
		submissions: submissions,
		criterion:   criterion,
		nats:        natsConn,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/sara-edu/sara-grading-api/internal/service/evaluation"),
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	attrs := []attribute.KeyValue{
		attribute.Int64("submission.id", int64(submissionID)),
	}
	spanCtx, span := s.tracer.Start(ctx, "grading.evaluate", trace.WithAttributes(attrs...))
	defer span.End()

	submission, err := s.submissions.GetByID(spanCtx, submissionID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("failed to load submission: %w", err)
	}

	if submission.Status == models.SubmissionStatusEvaluated {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: already evaluated", ErrSubmissionState)
	}

	criteria := submission.Activity.Criteria
	if len(criteria) == 0 {
		return dto.SubmissionResponse{}, fmt.Errorf("activity %d has no rubric criteria", submission.ActivityID)
	}

	submission.Status = models.SubmissionStatusSubmitted
	if err := s.submissions.Update(spanCtx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("failed to mark submission submitted: %w", err)
	}

	results := s.evaluateAll(spanCtx, submission, criteria)

	sentinels := 0
	for _, result := range results {
		if result.Sentinel {
			sentinels++
		}
	}
	if sentinels > 0 {
		observability.EvaluationSentinels().Add(float64(sentinels))
	}

	aggregate, err := grading.AggregateResults(results, criteria)
	if err != nil {
		span.SetStatus(codes.Error, "aggregation failed")
		span.RecordError(err)
		observability.Evaluations().WithLabelValues("failed").Inc()
		return dto.SubmissionResponse{}, fmt.Errorf("failed to aggregate results: %w", err)
	}

	serialized, err := json.Marshal(results)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("failed to serialize results: %w", err)
	}

	evaluatedAt := s.now().UTC()
	submission.Status = models.SubmissionStatusEvaluated
	submission.AutomatedScore = &aggregate.FinalScore
	submission.Results = datatypes.JSON(serialized)
	submission.EvaluatedAt = &evaluatedAt
	submission.NeedsReview = sentinels > 0

	if err := s.submissions.Update(spanCtx, &submission); err != nil {
		span.RecordError(err)
		observability.Evaluations().WithLabelValues("failed").Inc()
		return dto.SubmissionResponse{}, fmt.Errorf("failed to persist evaluation: %w", err)
	}

	observability.Evaluations().WithLabelValues("evaluated").Inc()
	s.publish(subjectEvaluated, submission, aggregate.FinalScore, string(aggregate.FinalLevel))

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Int("score", aggregate.FinalScore).
		Str("level", string(aggregate.FinalLevel)).
		Int("sentinels", sentinels).
		Msg("submission evaluated")

	return dto.FromSubmission(submission, results), nil
}

// evaluateAll runs every criterion through the evaluator with bounded
// concurrency. Each slot produces exactly one result; evaluator failures
// surface as sentinel results, never as missing entries.
func (s *evaluationService) evaluateAll(ctx context.Context, submission models.Submission, criteria []models.RubricCriterion) []grading.CriterionResult {
	results := make([]grading.CriterionResult, len(criteria))
	semaphore := make(chan struct{}, s.cfg.Concurrency)

	var wg sync.WaitGroup
	wg.Add(len(criteria))
	for i, criterion := range criteria {
		go func(i int, criterion models.RubricCriterion) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = s.criterion.Evaluate(ctx, criterion, answerText(submission, criterion.ID))
		}(i, criterion)
	}
	wg.Wait()

	return results
}

func (s *evaluationService) ManualGrade(ctx context.Context, submissionID, graderID uint, payload dto.ManualGradeRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	attrs := []attribute.KeyValue{
		attribute.Int64("submission.id", int64(submissionID)),
		attribute.Int("grade.score", payload.Score),
	}
	spanCtx, span := s.tracer.Start(ctx, "grading.manual_grade", trace.WithAttributes(attrs...))
	defer span.End()

	submission, err := s.submissions.GetByID(spanCtx, submissionID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("failed to load submission: %w", err)
	}

	if !submission.IsEvaluated() {
		return dto.SubmissionResponse{}, ErrNotEvaluated
	}

	gradedAt := s.now().UTC()
	submission.ManualScore = &payload.Score
	submission.ManualFeedback = payload.Feedback
	submission.GradedBy = &graderID
	submission.GradedAt = &gradedAt
	submission.NeedsReview = false

	if err := s.submissions.Update(spanCtx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("failed to persist manual grade: %w", err)
	}

	history := models.GradeHistory{
		SubmissionID: submission.ID,
		Score:        payload.Score,
		Feedback:     payload.Feedback,
		GradedBy:     graderID,
		GradedAt:     gradedAt,
	}
	if err := s.submissions.CreateHistory(spanCtx, &history); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to record grade history")
	}

	observability.ManualGrades().Inc()
	s.publish(subjectGraded, submission, payload.Score, string(models.LevelForFinalScore(payload.Score)))

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("graded_by", graderID).
		Int("score", payload.Score).
		Msg("manual grade recorded")

	results, err := decodeResults(submission.Results)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("stored results unreadable")
	}

	return dto.FromSubmission(submission, results), nil
}

func (s *evaluationService) Get(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	results, err := decodeResults(submission.Results)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("stored results unreadable")
	}

	return dto.FromSubmission(submission, results), nil
}

func (s *evaluationService) List(ctx context.Context, filter repository.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.FromSubmission(submission, nil))
	}
	return responses, nil
}

func (s *evaluationService) ActivityStats(ctx context.Context, activityID uint) (dto.ActivityStatsResponse, error) {
	submissions, err := s.submissions.ListByActivity(ctx, activityID)
	if err != nil {
		return dto.ActivityStatsResponse{}, err
	}

	stats := dto.ActivityStatsResponse{
		ActivityID: activityID,
		Total:      len(submissions),
		Levels:     make(map[string]int),
	}

	sum := 0
	scored := 0
	for _, submission := range submissions {
		if submission.NeedsReview {
			stats.NeedsReview++
		}
		if !submission.IsEvaluated() {
			continue
		}
		stats.Evaluated++
		if score := submission.FinalScore(); score != nil {
			sum += *score
			scored++
			stats.Levels[string(models.LevelForFinalScore(*score))]++
		}
	}

	if scored > 0 {
		average := float64(sum) / float64(scored)
		stats.AverageScore = &average
	}

	return stats, nil
}

func (s *evaluationService) publish(subject string, submission models.Submission, score int, level string) {
	if s.nats == nil {
		return
	}

	event := submissionEvent{
		SubmissionID: submission.ID,
		ActivityID:   submission.ActivityID,
		StudentID:    submission.StudentID,
		Score:        score,
		Level:        level,
		SentAt:       s.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode submission event")
		return
	}
	if err := s.nats.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish submission event")
	}
}

func answerText(submission models.Submission, criterionID string) string {
	raw, ok := submission.Answers[criterionID]
	if !ok {
		return ""
	}
	text, _ := raw.(string)
	return text
}

func decodeResults(payload datatypes.JSON) ([]grading.CriterionResult, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var results []grading.CriterionResult
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, err
	}
	return results, nil
}
