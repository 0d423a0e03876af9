package lab

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/labtrack/core"
)

// Default group size bounds applied when a Lab does not set its own.
const (
	DefaultMinGroupSize = 2
	DefaultMaxGroupSize = 3
)

type Lab struct {
	ID              string    `json:"id"`
	ClassID         string    `json:"class_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	PointsTotal     int       `json:"points_total"`
	CheckpointCount int       `json:"checkpoint_count"`
	MinGroupSize    int       `json:"min_group_size"`
	MaxGroupSize    int       `json:"max_group_size"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// GroupSizeBounds returns the configured min/max group sizes, falling back
// to the defaults when unset.
func (l Lab) GroupSizeBounds() (min, max int) {
	min, max = l.MinGroupSize, l.MaxGroupSize
	if min <= 0 {
		min = DefaultMinGroupSize
	}
	if max <= 0 {
		max = DefaultMaxGroupSize
	}
	if max < min {
		max = min
	}
	return min, max
}

type CheckpointDefinition struct {
	ID     string `json:"id"`
	LabID  string `json:"lab_id"`
	Number int    `json:"number"`
	Points int    `json:"points"`
}

// EffectivePoints treats unset or non-positive points as worth 1.
func (d CheckpointDefinition) EffectivePoints() int {
	if d.Points <= 0 {
		return 1
	}
	return d.Points
}

// NewLab contains information needed to create a new Lab.
type NewLab struct {
	ClassID         string `json:"class_id" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	PointsTotal     int    `json:"points_total" validate:"omitempty,gte=0"`
	CheckpointCount int    `json:"checkpoint_count" validate:"omitempty,gte=0"`
	MinGroupSize    int    `json:"min_group_size" validate:"omitempty,gte=1"`
	MaxGroupSize    int    `json:"max_group_size" validate:"omitempty,gtefield=MinGroupSize"`
}

func (nl *NewLab) Validate(validate *validator.Validate) error {
	nl.ClassID = core.CleanString(nl.ClassID)
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	return validate.Struct(nl)
}
