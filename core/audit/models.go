package audit

import (
	"time"

	"github.com/trezcool/labtrack/core"
)

// Signoff actions
const (
	ActionPass   = "pass"
	ActionReturn = "return"
)

// SignoffEvent is one immutable entry in the signoff audit trail. The
// checkpoint progress on the group is the mutable current view; events are
// history and are never updated after creation.
type SignoffEvent struct {
	ID               string    `json:"id"`
	LabID            string    `json:"lab_id"`
	GroupID          string    `json:"group_id"`
	CheckpointNumber *int      `json:"checkpoint_number,omitempty"`
	Action           string    `json:"action"`
	PerformedBy      string    `json:"performed_by"`
	PerformedAt      time.Time `json:"performed_at"` // UTC
	Notes            string    `json:"notes,omitempty"`
}

type QueryFilter struct {
	LabID       string    `query:"lab"`
	GroupID     string    `query:"group"`
	PerformedBy string    `query:"performed_by"`
	Action      string    `query:"action"`
	From        time.Time `query:"from"`
	To          time.Time `query:"to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.LabID == "" && qf.GroupID == "" && qf.PerformedBy == "" &&
		qf.Action == "" && qf.From.IsZero() && qf.To.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.LabID = core.CleanString(qf.LabID)
	qf.GroupID = core.CleanString(qf.GroupID)
	qf.PerformedBy = core.CleanString(qf.PerformedBy)
	qf.Action = core.CleanString(qf.Action, true /* lower */)
}

// Matches reports whether `ev` satisfies every set field of the filter.
func (qf QueryFilter) Matches(ev SignoffEvent) bool {
	if qf.LabID != "" && ev.LabID != qf.LabID {
		return false
	}
	if qf.GroupID != "" && ev.GroupID != qf.GroupID {
		return false
	}
	if qf.PerformedBy != "" && ev.PerformedBy != qf.PerformedBy {
		return false
	}
	if qf.Action != "" && ev.Action != qf.Action {
		return false
	}
	if !qf.From.IsZero() && ev.PerformedAt.Before(qf.From) {
		return false
	}
	if !qf.To.IsZero() && ev.PerformedAt.After(qf.To) {
		return false
	}
	return true
}
