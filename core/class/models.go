package class

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core"
)

// Enrollment roles
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Term      string    `json:"term"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Enrollment struct {
	ID             string    `json:"id"`
	ClassID        string    `json:"class_id"`
	UserExternalID string    `json:"user_external_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// DisplayName returns the best-available display name for the enrolled
// identity: "Last, First" when both are known, else the full name, else the
// email, else "Student <id>", else "Unknown Student".
func (e Enrollment) DisplayName() string {
	if e.FirstName != "" && e.LastName != "" {
		return e.LastName + ", " + e.FirstName
	}
	if e.Name != "" {
		return e.Name
	}
	if e.Email != "" {
		return e.Email
	}
	if e.UserExternalID != "" {
		return fmt.Sprintf("Student %s", e.UserExternalID)
	}
	return "Unknown Student"
}

// RosterEntry is an authoritative roster row imported from the LMS,
// independent of live enrollment records.
type RosterEntry struct {
	ID         string `json:"id"`
	ClassID    string `json:"class_id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	SISUserID  string `json:"sis_user_id"`
	SISLoginID string `json:"sis_login_id"`
	Section    string `json:"section"`
}

// NewEnrollment contains information needed to enroll an identity in a class.
type NewEnrollment struct {
	ClassID        string `json:"class_id" validate:"required"`
	UserExternalID string `json:"user_external_id" validate:"required"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Name           string `json:"name"`
	Email          string `json:"email" validate:"omitempty,email"`
	Role           string `json:"role" validate:"omitempty,oneof=student staff"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.UserExternalID = core.CleanString(ne.UserExternalID)
	ne.FirstName = core.CleanString(ne.FirstName)
	ne.LastName = core.CleanString(ne.LastName)
	ne.Name = core.CleanString(ne.Name)
	ne.Email = core.CleanString(ne.Email, true /* lower */)
	ne.Role = core.CleanString(ne.Role, true /* lower */)
	return validate.Struct(ne)
}
