package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/audit"
)

type auditRepository struct {
	db *eventTable
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.event}
}

func (repo *auditRepository) CreateEvent(_ context.Context, ev audit.SignoffEvent) (audit.SignoffEvent, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ev.ID = uuid.New().String()
	repo.db.events = append(repo.db.events, ev)
	return ev, nil
}

func (repo *auditRepository) FilterEvents(_ context.Context, filter audit.QueryFilter, ordering []core.DBOrdering) ([]audit.SignoffEvent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]audit.SignoffEvent, 0)
	for _, ev := range repo.db.events {
		if filter.Matches(ev) {
			events = append(events, ev)
		}
	}

	asc := true
	for _, ord := range ordering {
		if ord.Field == "performed_at" {
			asc = ord.Ascending
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if asc {
			return events[i].PerformedAt.Before(events[j].PerformedAt)
		}
		return events[j].PerformedAt.Before(events[i].PerformedAt)
	})
	return events, nil
}

func (repo *auditRepository) CountEventsByLab(_ context.Context, labID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var cnt int
	for _, ev := range repo.db.events {
		if ev.LabID == labID {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *auditRepository) DeleteEventsByID(_ context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := repo.db.events[:0]
	var cnt int
	for _, ev := range repo.db.events {
		if drop[ev.ID] {
			cnt++
			continue
		}
		kept = append(kept, ev)
	}
	repo.db.events = kept
	return cnt, nil
}
