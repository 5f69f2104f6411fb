package matching

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sara-edu/sara-grading-api/internal/models"
)

// ErrUnknownFile indicates an operation referenced a file name that is
// not part of the batch.
var ErrUnknownFile = errors.New("file not part of batch")

// ErrNoSuggestion indicates a re-included file has no original match
// suggestion and requires explicit reassignment.
var ErrNoSuggestion = errors.New("no original suggestion to restore")

// Assignment is one confirmed file-to-student pair.
type Assignment struct {
	FileName  string `json:"file_name"`
	StudentID uint   `json:"student_id"`
}

// Edit is one reviewer decision for a file: either reassign it to a
// student or exclude it from the batch.
type Edit struct {
	StudentID uint `json:"student_id,omitempty"`
	Exclude   bool `json:"exclude,omitempty"`
}

// ConfirmError is the all-or-nothing validation result of a rejected
// confirm call. Each slice lists the offending file names.
type ConfirmError struct {
	UnknownFiles    []string `json:"unknown_files,omitempty"`
	UnknownStudents []string `json:"unknown_students,omitempty"`
	DuplicateFiles  []string `json:"duplicate_files,omitempty"`
}

func (e *ConfirmError) Error() string {
	parts := []string{}
	if len(e.UnknownFiles) > 0 {
		parts = append(parts, fmt.Sprintf("unknown files: %s", strings.Join(e.UnknownFiles, ", ")))
	}
	if len(e.UnknownStudents) > 0 {
		parts = append(parts, fmt.Sprintf("unknown student ids for: %s", strings.Join(e.UnknownStudents, ", ")))
	}
	if len(e.DuplicateFiles) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate student assignment for: %s", strings.Join(e.DuplicateFiles, ", ")))
	}
	return "confirm rejected: " + strings.Join(parts, "; ")
}

// ReviewSet aggregates all proposals of one upload batch and the
// reviewer's live assignment map. It is created per batch, consumed
// once into confirmed pairs and then discarded. Not safe for concurrent
// use; callers serialize access per batch.
type ReviewSet struct {
	Proposals map[string]Proposal `json:"proposals"`

	// Assignments holds the live file -> student map. Always a subset
	// of Proposals' keys; a file absent here is excluded downstream.
	Assignments map[string]uint `json:"assignments"`

	// suggested preserves the matcher's original pick so an excluded
	// file can be re-included without losing it.
	Suggested map[string]uint `json:"suggested"`
}

// NewReviewSet builds a review set pre-populated with the suggested
// student for every matched and low-confidence proposal. not_found
// proposals start unassigned.
func NewReviewSet(proposals []Proposal) *ReviewSet {
	set := &ReviewSet{
		Proposals:   make(map[string]Proposal, len(proposals)),
		Assignments: make(map[string]uint, len(proposals)),
		Suggested:   make(map[string]uint, len(proposals)),
	}
	for _, p := range proposals {
		set.Proposals[p.FileName] = p
		if p.StudentID != 0 && (p.Status == StatusMatched || p.Status == StatusLowConfidence) {
			set.Assignments[p.FileName] = p.StudentID
			set.Suggested[p.FileName] = p.StudentID
		}
	}
	return set
}

// Assign maps a file to a student, replacing any previous assignment.
func (r *ReviewSet) Assign(fileName string, studentID uint) error {
	proposal, ok := r.Proposals[fileName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, fileName)
	}
	if suggested, has := r.Suggested[fileName]; !has || suggested != studentID {
		proposal.ManualOverride = true
		r.Proposals[fileName] = proposal
	}
	r.Assignments[fileName] = studentID
	return nil
}

// Exclude removes a file's assignment so it is skipped downstream.
func (r *ReviewSet) Exclude(fileName string) error {
	if _, ok := r.Proposals[fileName]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, fileName)
	}
	delete(r.Assignments, fileName)
	return nil
}

// Reinclude restores the original suggested student for a previously
// excluded file. Files that never had a suggestion need an explicit
// Assign instead.
func (r *ReviewSet) Reinclude(fileName string) error {
	if _, ok := r.Proposals[fileName]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, fileName)
	}
	suggested, ok := r.Suggested[fileName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuggestion, fileName)
	}
	r.Assignments[fileName] = suggested
	return nil
}

// Confirm applies the reviewer's edit set and returns the confirmed
// file/student pairs, sorted by file name for deterministic downstream
// processing. The call is all-or-nothing: unknown file names, student
// ids outside the roster, or the same student assigned to two files
// reject the whole edit set via *ConfirmError, leaving the review set
// untouched. not_found files that were never assigned are silently
// dropped.
func (r *ReviewSet) Confirm(edits map[string]Edit, roster []models.Student) ([]Assignment, error) {
	known := make(map[uint]struct{}, len(roster))
	for _, student := range roster {
		known[student.ID] = struct{}{}
	}

	confirmErr := &ConfirmError{}
	for fileName, edit := range edits {
		if _, ok := r.Proposals[fileName]; !ok {
			confirmErr.UnknownFiles = append(confirmErr.UnknownFiles, fileName)
			continue
		}
		if !edit.Exclude {
			if _, ok := known[edit.StudentID]; !ok {
				confirmErr.UnknownStudents = append(confirmErr.UnknownStudents, fileName)
			}
		}
	}

	// Project the final assignment map without mutating state yet.
	final := make(map[string]uint, len(r.Assignments))
	for fileName, studentID := range r.Assignments {
		final[fileName] = studentID
	}
	for fileName, edit := range edits {
		if edit.Exclude {
			delete(final, fileName)
			continue
		}
		final[fileName] = edit.StudentID
	}

	byStudent := make(map[uint][]string, len(final))
	for fileName, studentID := range final {
		byStudent[studentID] = append(byStudent[studentID], fileName)
	}
	for _, files := range byStudent {
		if len(files) > 1 {
			confirmErr.DuplicateFiles = append(confirmErr.DuplicateFiles, files...)
		}
	}

	if len(confirmErr.UnknownFiles) > 0 || len(confirmErr.UnknownStudents) > 0 || len(confirmErr.DuplicateFiles) > 0 {
		sort.Strings(confirmErr.UnknownFiles)
		sort.Strings(confirmErr.UnknownStudents)
		sort.Strings(confirmErr.DuplicateFiles)
		return nil, confirmErr
	}

	for fileName, edit := range edits {
		if edit.Exclude {
			_ = r.Exclude(fileName)
			continue
		}
		_ = r.Assign(fileName, edit.StudentID)
	}

	assignments := make([]Assignment, 0, len(r.Assignments))
	for fileName, studentID := range r.Assignments {
		assignments = append(assignments, Assignment{FileName: fileName, StudentID: studentID})
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].FileName < assignments[j].FileName
	})
	return assignments, nil
}

// Dropped returns the number of proposals without a live assignment.
func (r *ReviewSet) Dropped() int {
	return len(r.Proposals) - len(r.Assignments)
}
