package audit

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
)

var ErrNotFound = errors.New("signoff event not found")

type (
	// Repository is an append-only store: no update operation exists, and
	// deletion is reserved for administrative/compliance cleanup.
	Repository interface {
		CreateEvent(ctx context.Context, ev SignoffEvent) (SignoffEvent, error)
		// FilterEvents applies AND operation on available QueryFilter fields.
		FilterEvents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]SignoffEvent, error)
		CountEventsByLab(ctx context.Context, labID string) (int, error)
		DeleteEventsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Log(ctx context.Context, ev SignoffEvent) (SignoffEvent, error) {
	if ev.Action != ActionPass && ev.Action != ActionReturn {
		return SignoffEvent{}, core.NewValidationError(
			errors.Errorf("unknown signoff action %q", ev.Action),
			core.FieldError{Field: "action", Error: "must be one of: pass, return"},
		)
	}
	if ev.PerformedAt.IsZero() {
		ev.PerformedAt = time.Now().UTC()
	}
	return svc.repo.CreateEvent(ctx, ev)
}

// Query returns matching events, chronological unless an explicit ordering
// says otherwise. Only performed_at is orderable.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]SignoffEvent, error) {
	filter.Clean()
	if filter.Action != "" && filter.Action != ActionPass && filter.Action != ActionReturn {
		return nil, core.NewValidationError(
			errors.Errorf("unknown signoff action %q", filter.Action),
			core.FieldError{Field: "action", Error: "must be one of: pass, return"},
		)
	}
	for _, ord := range ordering {
		if ord.Field != "performed_at" {
			return nil, core.NewValidationError(
				errors.Errorf("cannot order by %q", ord.Field),
				core.FieldError{Field: "ordering", Error: "only performed_at is orderable"},
			)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "performed_at", Ascending: true}}
	}
	return svc.repo.FilterEvents(ctx, filter, ordering)
}

func (svc *Service) CountByLab(ctx context.Context, labID string) (int, error) {
	return svc.repo.CountEventsByLab(ctx, labID)
}

// Delete removes events by id. Entries are otherwise immutable; this exists
// solely for compliance-driven cleanup.
func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteEventsByID(ctx, ids...)
}
