package group

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core"
)

// Group statuses
const (
	StatusForming    = "forming"
	StatusInProgress = "in_progress"
	StatusSignedOff  = "signed_off"
)

// Checkpoint statuses. A checkpoint starts Unset, moves to Passed or
// Returned, and may flip between those two freely; it never regresses to
// Unset.
const (
	CheckpointUnset    = "unset"
	CheckpointPassed   = "passed"
	CheckpointReturned = "returned"
)

type CheckpointProgress struct {
	Number         int       `json:"number"`
	Status         string    `json:"status"`
	SignerID       string    `json:"signer_id,omitempty"`
	SignerName     string    `json:"signer_name,omitempty"`
	SignedAt       time.Time `json:"signed_at,omitempty"` // UTC
	Notes          string    `json:"notes,omitempty"`
	PointsOverride *float64  `json:"points_override,omitempty"`
}

type GroupMember struct {
	UserExternalID string    `json:"user_external_id,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	JoinedAt       time.Time `json:"joined_at"` // UTC
	Present        *bool     `json:"present,omitempty"`
}

// IsPresent defaults to true when unset.
func (m GroupMember) IsPresent() bool {
	return m.Present == nil || *m.Present
}

type Group struct {
	ID               string               `json:"id"`
	DisplayID        string               `json:"display_id"`
	LabID            string               `json:"lab_id"`
	GenerationNumber int                  `json:"generation_number"`
	Status           string               `json:"status"`
	Members          []GroupMember        `json:"members"`
	Progress         []CheckpointProgress `json:"checkpoint_progress"`
	CreatedAt        time.Time            `json:"created_at"` // UTC
	UpdatedAt        time.Time            `json:"updated_at"` // UTC
}

// FindProgress returns the progress entry for the given checkpoint number,
// or nil when absent.
func (g *Group) FindProgress(number int) *CheckpointProgress {
	for i := range g.Progress {
		if g.Progress[i].Number == number {
			return &g.Progress[i]
		}
	}
	return nil
}

// refreshStatus recomputes the group status from its checkpoint progress.
func (g *Group) refreshStatus() {
	if len(g.Progress) == 0 {
		return
	}
	allPassed, anySigned := true, false
	for _, p := range g.Progress {
		if p.Status != CheckpointPassed {
			allPassed = false
		}
		if p.Status != CheckpointUnset {
			anySigned = true
		}
	}
	switch {
	case allPassed:
		g.Status = StatusSignedOff
	case anySigned:
		g.Status = StatusInProgress
	}
}

// GetFilter identifies one group. ID is the canonical storage id; DisplayID
// is an indexed alias, matched exactly when ID is unset (never a fallback
// probe after an ID miss).
type GetFilter struct {
	ID        string
	DisplayID string
	LabID     string // scopes DisplayID lookups
}

// Performer identifies who signs a checkpoint off.
type Performer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BulkMember is one member row of a bulk group update.
type BulkMember struct {
	UserExternalID string `json:"user_external_id"`
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	Present        *bool  `json:"present"`
}

// BulkGroup is one group row of a bulk group update.
type BulkGroup struct {
	DisplayID string       `json:"display_id" validate:"omitempty,alphanum_"`
	Status    string       `json:"status" validate:"omitempty,oneof=forming in_progress signed_off"`
	Members   []BulkMember `json:"members" validate:"dive"`
}

func (bg *BulkGroup) Validate(validate *validator.Validate) error {
	bg.DisplayID = core.CleanString(bg.DisplayID)
	bg.Status = core.CleanString(bg.Status, true /* lower */)
	for i := range bg.Members {
		bg.Members[i].UserExternalID = core.CleanString(bg.Members[i].UserExternalID)
		bg.Members[i].Name = core.CleanString(bg.Members[i].Name)
		bg.Members[i].Email = core.CleanString(bg.Members[i].Email, true /* lower */)
	}
	return validate.Struct(bg)
}
