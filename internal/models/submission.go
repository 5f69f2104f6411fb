package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is the lifecycle record for one student's work on one
// activity. The automated score and every criterion result are retained
// unchanged once written; a manual score layers on top for reporting.
type Submission struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ActivityID uint   `gorm:"index:idx_submission_activity_student;not null" json:"activity_id"`
	StudentID  uint   `gorm:"index:idx_submission_activity_student;not null" json:"student_id"`
	FileName   string `gorm:"size:255" json:"file_name"`
	Status     string `gorm:"size:32;not null" json:"status"`

	// Answers maps criterion id to the student's raw answer text.
	Answers datatypes.JSONMap `json:"answers"`

	// Results holds the ordered CriterionResult list serialized by the
	// grading layer. Written once per evaluation run.
	Results datatypes.JSON `json:"results"`

	AutomatedScore  *int       `json:"automated_score"`
	ManualScore     *int       `json:"manual_score"`
	ManualFeedback  string     `gorm:"type:text" json:"manual_feedback"`
	GeneralFeedback string     `gorm:"type:text" json:"general_feedback"`
	NeedsReview     bool       `gorm:"not null;default:false" json:"needs_review"`
	EvaluatedAt     *time.Time `json:"evaluated_at"`
	GradedBy        *uint      `json:"graded_by"`
	GradedAt        *time.Time `json:"graded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Activity Activity `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"activity"`
	Student  Student  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

const (
	// SubmissionStatusDraft marks a confirmed file/student pair awaiting evaluation.
	SubmissionStatusDraft = "draft"
	// SubmissionStatusSubmitted marks a submission whose criteria have been sent for evaluation.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusEvaluated marks a submission with a full set of criterion results.
	SubmissionStatusEvaluated = "evaluated"
)

// FinalScore returns the manual score when set, the automated score
// otherwise. Nil means the submission has not been evaluated.
func (s Submission) FinalScore() *int {
	if s.ManualScore != nil {
		return s.ManualScore
	}
	return s.AutomatedScore
}

// FinalLevel derives the performance level from the final score.
func (s Submission) FinalLevel() *PerformanceLevel {
	score := s.FinalScore()
	if score == nil {
		return nil
	}
	level := LevelForFinalScore(*score)
	return &level
}

// IsEvaluated reports whether every criterion has a result.
func (s Submission) IsEvaluated() bool {
	return s.Status == SubmissionStatusEvaluated
}

// GradeHistory is an audit row recorded whenever an instructor adjusts
// a submission's score manually.
type GradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"index;not null" json:"submission_id"`
	Score        int       `gorm:"not null" json:"score"`
	Feedback     string    `gorm:"type:text" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
