package models

import "time"

// Student is a roster entry owned by the enrollment system. It is
// read-only during a matching run.
type Student struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	DisplayName      string    `gorm:"size:255;not null" json:"display_name"`
	Email            string    `gorm:"size:255;uniqueIndex" json:"email"`
	EnrollmentCourse string    `gorm:"size:128;index" json:"enrollment_course"`
	Status           string    `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const (
	// StudentStatusActive marks students eligible for matching.
	StudentStatusActive = "active"
	// StudentStatusInactive marks students excluded from rosters.
	StudentStatusInactive = "inactive"
)
