package queue

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core"
)

// Item statuses
const (
	StatusWaiting   = "waiting"
	StatusClaimed   = "claimed"
	StatusResolved  = "resolved"
	StatusCancelled = "cancelled"
)

// Item priorities
const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

// Item is one help request in a lab's queue. Position is monotonic per lab
// and never reused, even after items are deleted.
type Item struct {
	ID          string    `json:"id"`
	LabID       string    `json:"lab_id"`
	GroupID     string    `json:"group_id"`
	RaisedBy    string    `json:"raised_by"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Position    int       `json:"position"`
	RaisedAt    time.Time `json:"raised_at"`              // UTC
	ClaimedBy   string    `json:"claimed_by,omitempty"`
	ClaimedAt   time.Time `json:"claimed_at,omitempty"`   // UTC
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`  // UTC
}

// IsActive reports whether the item still occupies the queue.
func (it Item) IsActive() bool {
	return it.Status == StatusWaiting || it.Status == StatusClaimed
}

// IsClosed reports whether the item reached a terminal status.
func (it Item) IsClosed() bool {
	return it.Status == StatusResolved || it.Status == StatusCancelled
}

// NewItem contains information needed to raise a hand.
type NewItem struct {
	LabID       string `json:"lab_id" validate:"required"`
	GroupID     string `json:"group_id" validate:"required"`
	RaisedBy    string `json:"raised_by" validate:"required"`
	Description string `json:"description"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.LabID = core.CleanString(ni.LabID)
	ni.GroupID = core.CleanString(ni.GroupID)
	ni.RaisedBy = core.CleanString(ni.RaisedBy)
	ni.Description = core.CleanString(ni.Description)
	return validate.Struct(ni)
}

// Stats summarizes a lab's queue. Claimed is counted directly from item
// status, never derived from Active-Waiting.
type Stats struct {
	Waiting int `json:"waiting"`
	Claimed int `json:"claimed"`
	Active  int `json:"active"`
}
