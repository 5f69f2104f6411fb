package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/sara-edu/sara-grading-api/internal/dto"
	"github.com/sara-edu/sara-grading-api/internal/matching"
	"github.com/sara-edu/sara-grading-api/internal/models"
	"github.com/sara-edu/sara-grading-api/internal/observability"
	"github.com/sara-edu/sara-grading-api/internal/repository"
)

// ErrBatchNotFound indicates the review batch expired or never existed.
var ErrBatchNotFound = errors.New("review batch not found")

// ErrUnsupportedContent indicates an uploaded file body is not text.
var ErrUnsupportedContent = errors.New("unsupported file content type")

const (
	rosterCachePrefix = "sara:roster:"
	reviewBatchPrefix = "sara:review:"
)

// MatchingConfig tunes the matching service.
type MatchingConfig struct {
	Thresholds     matching.Thresholds
	Workers        int
	RosterCacheTTL time.Duration
	ReviewBatchTTL time.Duration
}

// MatchingService previews file-name matches against the roster and
// confirms reviewed batches into draft submissions.
type MatchingService interface {
	Preview(ctx context.Context, payload dto.PreviewRequest) (dto.PreviewResponse, error)
	Confirm(ctx context.Context, batchID string, payload dto.ConfirmRequest) (dto.ConfirmResponse, error)
}

type matchingService struct {
	students    repository.StudentRepository
	activities  repository.ActivityRepository
	submissions repository.SubmissionRepository
	redis       *redis.Client
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	cfg         MatchingConfig
}

// NewMatchingService constructs a matching service.
func NewMatchingService(
	students repository.StudentRepository,
	activities repository.ActivityRepository,
	submissions repository.SubmissionRepository,
	redisClient *redis.Client,
	validate *validator.Validate,
	cfg MatchingConfig,
	logger zerolog.Logger,
) MatchingService {
	return &matchingService{
		students:    students,
		activities:  activities,
		submissions: submissions,
		redis:       redisClient,
		validator:   validate,
		logger:      logger.With().Str("component", "matching_service").Logger(),
		tracer:      otel.Tracer("github.com/sara-edu/sara-grading-api/internal/service/matching"),
		cfg:         cfg,
	}
}

func (s *matchingService) Preview(ctx context.Context, payload dto.PreviewRequest) (dto.PreviewResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PreviewResponse{}, err
	}

	attrs := []attribute.KeyValue{
		attribute.Int("matching.batch_size", len(payload.FileNames)),
		attribute.String("matching.course", payload.Course),
	}
	spanCtx, span := s.tracer.Start(ctx, "matching.preview", trace.WithAttributes(attrs...))
	defer span.End()

	roster, err := s.loadRoster(spanCtx, payload.Course)
	if err != nil {
		span.RecordError(err)
		return dto.PreviewResponse{}, fmt.Errorf("failed to load roster: %w", err)
	}

	started := time.Now()
	proposals, err := matching.MatchBatch(spanCtx, payload.FileNames, roster, s.cfg.Thresholds, s.cfg.Workers)
	observability.MatchBatchDuration().Observe(time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return dto.PreviewResponse{}, err
	}

	for _, proposal := range proposals {
		observability.MatchProposals().WithLabelValues(string(proposal.Status)).Inc()
	}

	batchID := uuid.NewString()
	set := matching.NewReviewSet(proposals)
	if err := s.storeReviewSet(spanCtx, batchID, payload.Course, set); err != nil {
		span.RecordError(err)
		return dto.PreviewResponse{}, fmt.Errorf("failed to store review batch: %w", err)
	}

	response := dto.PreviewResponse{
		BatchID:   batchID,
		Proposals: make([]dto.ProposalResponse, 0, len(proposals)),
		Summary:   dto.SummarizeProposals(proposals),
	}
	for _, proposal := range proposals {
		response.Proposals = append(response.Proposals, dto.FromProposal(proposal))
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Int("total", response.Summary.Total).
		Int("matched", response.Summary.Matched).
		Int("low_confidence", response.Summary.LowConfidence).
		Int("not_found", response.Summary.NotFound).
		Msg("match preview produced")

	return response, nil
}

func (s *matchingService) Confirm(ctx context.Context, batchID string, payload dto.ConfirmRequest) (dto.ConfirmResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ConfirmResponse{}, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("matching.batch_id", batchID),
		attribute.Int("matching.edit_count", len(payload.Edits)),
	}
	spanCtx, span := s.tracer.Start(ctx, "matching.confirm", trace.WithAttributes(attrs...))
	defer span.End()

	set, course, err := s.loadReviewSet(spanCtx, batchID)
	if err != nil {
		span.RecordError(err)
		return dto.ConfirmResponse{}, err
	}

	activity, err := s.activities.GetByID(spanCtx, payload.ActivityID)
	if err != nil {
		span.RecordError(err)
		return dto.ConfirmResponse{}, fmt.Errorf("failed to load activity: %w", err)
	}

	roster, err := s.loadRoster(spanCtx, course)
	if err != nil {
		span.RecordError(err)
		return dto.ConfirmResponse{}, fmt.Errorf("failed to load roster: %w", err)
	}

	edits := make(map[string]matching.Edit, len(payload.Edits))
	for _, edit := range payload.Edits {
		edits[edit.FileName] = matching.Edit{StudentID: edit.StudentID, Exclude: edit.Exclude}
	}

	assignments, err := set.Confirm(edits, roster)
	if err != nil {
		return dto.ConfirmResponse{}, err
	}

	dropped := make([]string, 0, set.Dropped())
	for fileName := range set.Proposals {
		if _, ok := set.Assignments[fileName]; !ok {
			dropped = append(dropped, fileName)
		}
	}

	// Section every file before writing anything, then persist the whole
	// batch in one transaction. A failure leaves no submissions behind and
	// keeps the batch in redis, so confirm can be retried without
	// duplicating records.
	submissions := make([]*models.Submission, 0, len(assignments))
	for _, assignment := range assignments {
		answers, err := s.sectionAnswers(payload.Contents[assignment.FileName], activity.Criteria)
		if err != nil {
			span.RecordError(err)
			return dto.ConfirmResponse{}, fmt.Errorf("%s: %w", assignment.FileName, err)
		}

		submissions = append(submissions, &models.Submission{
			ActivityID: activity.ID,
			StudentID:  assignment.StudentID,
			FileName:   assignment.FileName,
			Status:     models.SubmissionStatusDraft,
			Answers:    datatypes.JSONMap(answers),
		})
	}

	if err := s.submissions.CreateBatch(spanCtx, submissions); err != nil {
		span.RecordError(err)
		return dto.ConfirmResponse{}, fmt.Errorf("failed to create submissions: %w", err)
	}

	response := dto.ConfirmResponse{Dropped: dropped}
	for i, assignment := range assignments {
		proposal := set.Proposals[assignment.FileName]
		response.Assignments = append(response.Assignments, dto.AssignmentResponse{
			FileName:       assignment.FileName,
			StudentID:      assignment.StudentID,
			StudentName:    studentName(roster, assignment.StudentID),
			Confidence:     proposal.Confidence,
			ManualOverride: proposal.ManualOverride,
			SubmissionID:   submissions[i].ID,
		})
	}

	if err := s.redis.Del(spanCtx, reviewBatchPrefix+batchID).Err(); err != nil {
		s.logger.Warn().Err(err).Str("batch_id", batchID).Msg("failed to drop confirmed review batch")
	}

	s.logger.Info().
		Str("batch_id", batchID).
		Uint("activity_id", activity.ID).
		Int("confirmed", len(response.Assignments)).
		Int("dropped", len(dropped)).
		Msg("match batch confirmed")

	return response, nil
}

type storedBatch struct {
	Course string              `json:"course"`
	Set    *matching.ReviewSet `json:"set"`
}

func (s *matchingService) storeReviewSet(ctx context.Context, batchID, course string, set *matching.ReviewSet) error {
	payload, err := json.Marshal(storedBatch{Course: course, Set: set})
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, reviewBatchPrefix+batchID, payload, s.cfg.ReviewBatchTTL).Err()
}

func (s *matchingService) loadReviewSet(ctx context.Context, batchID string) (*matching.ReviewSet, string, error) {
	payload, err := s.redis.Get(ctx, reviewBatchPrefix+batchID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load review batch: %w", err)
	}

	var stored storedBatch
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, "", fmt.Errorf("corrupt review batch payload: %w", err)
	}
	if stored.Set == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	return stored.Set, stored.Course, nil
}

// loadRoster serves the active roster from cache when fresh, hitting the
// database on a miss.
func (s *matchingService) loadRoster(ctx context.Context, course string) ([]models.Student, error) {
	key := rosterCachePrefix + course

	if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
		var roster []models.Student
		if err := json.Unmarshal(cached, &roster); err == nil {
			return roster, nil
		}
		s.logger.Warn().Str("course", course).Msg("discarding corrupt roster cache entry")
	}

	roster, err := s.students.ListActiveByCourse(ctx, course)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(roster); err == nil {
		if err := s.redis.Set(ctx, key, payload, s.cfg.RosterCacheTTL).Err(); err != nil {
			s.logger.Warn().Err(err).Str("course", course).Msg("failed to cache roster")
		}
	}

	return roster, nil
}

// sectionAnswers splits a markdown submission body into per-criterion
// answers. When the document carries one heading-delimited section per
// criterion the sections map positionally; otherwise every criterion
// receives the full text and the evaluator isolates its own portion.
func (s *matchingService) sectionAnswers(content string, criteria []models.RubricCriterion) (map[string]interface{}, error) {
	answers := make(map[string]interface{}, len(criteria))
	if strings.TrimSpace(content) == "" {
		for _, criterion := range criteria {
			answers[criterion.ID] = ""
		}
		return answers, nil
	}

	detected := mimetype.Detect([]byte(content))
	if !strings.HasPrefix(detected.String(), "text/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, detected.String())
	}

	sections := splitMarkdownSections(content)
	if len(sections) == len(criteria) {
		for i, criterion := range criteria {
			answers[criterion.ID] = strings.TrimSpace(sections[i])
		}
		return answers, nil
	}

	for _, criterion := range criteria {
		answers[criterion.ID] = strings.TrimSpace(content)
	}
	return answers, nil
}

// splitMarkdownSections cuts a document at its heading lines. Text
// before the first heading is ignored as preamble only when headings
// exist at all.
func splitMarkdownSections(content string) []string {
	lines := strings.Split(content, "\n")

	var sections []string
	var current []string
	inSection := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			if inSection {
				sections = append(sections, strings.Join(current, "\n"))
			}
			current = current[:0]
			inSection = true
			continue
		}
		if inSection {
			current = append(current, line)
		}
	}
	if inSection {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return sections
}

func studentName(roster []models.Student, id uint) string {
	for _, student := range roster {
		if student.ID == id {
			return student.DisplayName
		}
	}
	return ""
}
