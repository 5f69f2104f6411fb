package dto

import "github.com/sara-edu/sara-grading-api/internal/matching"

// PreviewRequest carries the uploaded batch to match against the roster.
type PreviewRequest struct {
	Course    string   `json:"course" validate:"required"`
	FileNames []string `json:"fileNames" validate:"required,min=1,dive,required"`
}

// ProposalResponse is one matching proposal in a preview.
type ProposalResponse struct {
	FileName       string `json:"fileName"`
	StudentID      uint   `json:"studentId,omitempty"`
	StudentName    string `json:"studentName,omitempty"`
	Confidence     int    `json:"confidence"`
	Status         string `json:"status"`
	ManualOverride bool   `json:"manualOverride"`
}

// PreviewSummary aggregates proposal statuses for the instructor view.
type PreviewSummary struct {
	Total         int `json:"total"`
	Matched       int `json:"matched"`
	LowConfidence int `json:"lowConfidence"`
	NotFound      int `json:"notFound"`
}

// PreviewResponse is the result of matching a batch of file names.
type PreviewResponse struct {
	BatchID   string             `json:"batchId"`
	Proposals []ProposalResponse `json:"proposals"`
	Summary   PreviewSummary     `json:"summary"`
}

// ConfirmEdit is one instructor correction applied before confirmation.
type ConfirmEdit struct {
	FileName  string `json:"fileName" validate:"required"`
	StudentID uint   `json:"studentId"`
	Exclude   bool   `json:"exclude"`
}

// ConfirmRequest finalizes a previewed batch into draft submissions.
// Contents maps a file name to the markdown body of that file.
type ConfirmRequest struct {
	ActivityID uint              `json:"activityId" validate:"required"`
	Edits      []ConfirmEdit     `json:"edits" validate:"dive"`
	Contents   map[string]string `json:"contents"`
}

// AssignmentResponse is one confirmed file-to-student assignment.
type AssignmentResponse struct {
	FileName       string `json:"fileName"`
	StudentID      uint   `json:"studentId"`
	StudentName    string `json:"studentName"`
	Confidence     int    `json:"confidence"`
	ManualOverride bool   `json:"manualOverride"`
	SubmissionID   uint   `json:"submissionId"`
}

// ConfirmResponse reports the created submissions and dropped files.
type ConfirmResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
	Dropped     []string             `json:"dropped"`
}

// FromProposal converts an internal matching proposal to its API shape.
func FromProposal(p matching.Proposal) ProposalResponse {
	return ProposalResponse{
		FileName:       p.FileName,
		StudentID:      p.StudentID,
		StudentName:    p.StudentName,
		Confidence:     p.Confidence,
		Status:         string(p.Status),
		ManualOverride: p.ManualOverride,
	}
}

// SummarizeProposals tallies proposal statuses.
func SummarizeProposals(proposals []matching.Proposal) PreviewSummary {
	summary := PreviewSummary{Total: len(proposals)}
	for _, p := range proposals {
		switch p.Status {
		case matching.StatusMatched:
			summary.Matched++
		case matching.StatusLowConfidence:
			summary.LowConfidence++
		default:
			summary.NotFound++
		}
	}

	return summary
}
