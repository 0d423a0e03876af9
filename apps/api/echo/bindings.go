package echoapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/audit"
	"github.com/trezcool/labtrack/core/group"
	"github.com/trezcool/labtrack/core/queue"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Requests

type SignoffRequest struct {
	PerformedBy   string `json:"performed_by"`
	PerformerName string `json:"performer_name"`
	Notes         string `json:"notes"`
}

func (r *SignoffRequest) Validate(validate *validator.Validate) error {
	r.PerformedBy = core.CleanString(r.PerformedBy)
	r.PerformerName = core.CleanString(r.PerformerName)
	r.Notes = core.CleanString(r.Notes)
	return validate.Struct(r)
}

func (r SignoffRequest) performer() group.Performer {
	return group.Performer{ID: r.PerformedBy, Name: r.PerformerName}
}

type ToggleRequest struct {
	SignoffRequest
	Completed bool `json:"completed"`
}

type RandomizeRequest struct {
	Seed *int64 `json:"seed"`
}

type BulkGroupsRequest struct {
	Groups []group.BulkGroup `json:"groups" validate:"required"`
}

func (r *BulkGroupsRequest) Validate(validate *validator.Validate) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	for i := range r.Groups {
		if err := r.Groups[i].Validate(validate); err != nil {
			return err
		}
	}
	return nil
}

type ClaimRequest struct {
	ClaimedBy string `json:"claimed_by" validate:"required"`
}

func (r *ClaimRequest) Validate(validate *validator.Validate) error {
	r.ClaimedBy = core.CleanString(r.ClaimedBy)
	return validate.Struct(r)
}

type EmailExportRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1,dive,email"`
}

func (r *EmailExportRequest) Validate(validate *validator.Validate) error {
	for i := range r.Recipients {
		r.Recipients[i] = core.CleanString(r.Recipients[i], true /* lower */)
	}
	return validate.Struct(r)
}

// Responses

type SuccessResponse struct {
	Success string `json:"success"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type SignoffResponse struct {
	Event    audit.SignoffEvent       `json:"event"`
	Progress group.CheckpointProgress `json:"progress"`
}

type QueueListResponse struct {
	Items []queue.Item `json:"items"`
	Stats queue.Stats  `json:"stats"`
}
