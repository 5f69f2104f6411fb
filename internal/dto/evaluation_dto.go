package dto

import (
	"time"

	"github.com/sara-edu/sara-grading-api/internal/grading"
	"github.com/sara-edu/sara-grading-api/internal/models"
)

// CriterionResultResponse is the per-criterion outcome of an evaluation.
type CriterionResultResponse struct {
	CriterionID string                    `json:"criterionId"`
	RawScore    int                       `json:"rawScore"`
	Level       string                    `json:"level"`
	Feedback    string                    `json:"feedback"`
	Sentinel    bool                      `json:"sentinel,omitempty"`
	Calculation *grading.CalculationCheck `json:"calculation,omitempty"`
}

// SubmissionResponse is the API shape of a submission.
type SubmissionResponse struct {
	ID              uint                      `json:"id"`
	ActivityID      uint                      `json:"activityId"`
	StudentID       uint                      `json:"studentId"`
	StudentName     string                    `json:"studentName,omitempty"`
	ActivityTitle   string                    `json:"activityTitle,omitempty"`
	Status          string                    `json:"status"`
	AutomatedScore  *int                      `json:"automatedScore,omitempty"`
	ManualScore     *int                      `json:"manualScore,omitempty"`
	FinalScore      *int                      `json:"finalScore,omitempty"`
	FinalLevel      string                    `json:"finalLevel,omitempty"`
	NeedsReview     bool                      `json:"needsReview"`
	ManualFeedback  string                    `json:"manualFeedback,omitempty"`
	GeneralFeedback string                    `json:"generalFeedback,omitempty"`
	Results         []CriterionResultResponse `json:"results,omitempty"`
	EvaluatedAt     *time.Time                `json:"evaluatedAt,omitempty"`
	GradedBy        *uint                     `json:"gradedBy,omitempty"`
	GradedAt        *time.Time                `json:"gradedAt,omitempty"`
	CreatedAt       time.Time                 `json:"createdAt"`
}

// ManualGradeRequest carries an instructor override for a submission.
type ManualGradeRequest struct {
	Score    int    `json:"score" validate:"min=0,max=100"`
	Feedback string `json:"feedback" validate:"max=4000"`
}

// ActivityStatsResponse summarizes evaluation progress for one activity.
type ActivityStatsResponse struct {
	ActivityID   uint           `json:"activityId"`
	Total        int            `json:"total"`
	Evaluated    int            `json:"evaluated"`
	NeedsReview  int            `json:"needsReview"`
	AverageScore *float64       `json:"averageScore,omitempty"`
	Levels       map[string]int `json:"levels"`
}

// FromSubmission converts a submission model to its API shape.
func FromSubmission(s models.Submission, results []grading.CriterionResult) SubmissionResponse {
	resp := SubmissionResponse{
		ID:              s.ID,
		ActivityID:      s.ActivityID,
		StudentID:       s.StudentID,
		Status:          s.Status,
		AutomatedScore:  s.AutomatedScore,
		ManualScore:     s.ManualScore,
		FinalScore:      s.FinalScore(),
		NeedsReview:     s.NeedsReview,
		ManualFeedback:  s.ManualFeedback,
		GeneralFeedback: s.GeneralFeedback,
		EvaluatedAt:     s.EvaluatedAt,
		GradedBy:        s.GradedBy,
		GradedAt:        s.GradedAt,
		CreatedAt:       s.CreatedAt,
	}

	if level := s.FinalLevel(); level != nil {
		resp.FinalLevel = string(*level)
	}

	if s.Student.ID != 0 {
		resp.StudentName = s.Student.DisplayName
	}

	if s.Activity.ID != 0 {
		resp.ActivityTitle = s.Activity.Title
	}

	for _, r := range results {
		resp.Results = append(resp.Results, CriterionResultResponse{
			CriterionID: r.CriterionID,
			RawScore:    r.RawScore,
			Level:       string(r.Level),
			Feedback:    r.Feedback,
			Sentinel:    r.Sentinel,
			Calculation: r.CalculationCheck,
		})
	}

	return resp
}
