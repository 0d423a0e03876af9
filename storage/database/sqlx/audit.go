package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/audit"
)

type signoffEventRow struct {
	ID               string    `db:"id"`
	LabID            string    `db:"lab_id"`
	GroupID          string    `db:"group_id"`
	CheckpointNumber null.Int  `db:"checkpoint_number"`
	Action           string    `db:"action"`
	PerformedBy      string    `db:"performed_by"`
	PerformedAt      time.Time `db:"performed_at"`
	Notes            string    `db:"notes"`
}

func (r signoffEventRow) toCore() audit.SignoffEvent {
	ev := audit.SignoffEvent{
		ID:          r.ID,
		LabID:       r.LabID,
		GroupID:     r.GroupID,
		Action:      r.Action,
		PerformedBy: r.PerformedBy,
		PerformedAt: r.PerformedAt,
		Notes:       r.Notes,
	}
	if r.CheckpointNumber.Valid {
		num := r.CheckpointNumber.Int
		ev.CheckpointNumber = &num
	}
	return ev
}

func newSignoffEventRow(ev audit.SignoffEvent) signoffEventRow {
	r := signoffEventRow{
		ID:          ev.ID,
		LabID:       ev.LabID,
		GroupID:     ev.GroupID,
		Action:      ev.Action,
		PerformedBy: ev.PerformedBy,
		PerformedAt: ev.PerformedAt.UTC(),
		Notes:       ev.Notes,
	}
	if ev.CheckpointNumber != nil {
		r.CheckpointNumber = null.IntFrom(*ev.CheckpointNumber)
	}
	return r
}

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil)

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo auditRepository) CreateEvent(ctx context.Context, ev audit.SignoffEvent) (audit.SignoffEvent, error) {
	ev.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO signoff_event (id, lab_id, group_id, checkpoint_number, action, performed_by, performed_at, notes)
		VALUES (:id, :lab_id, :group_id, :checkpoint_number, :action, :performed_by, :performed_at, :notes)`,
		newSignoffEventRow(ev),
	)
	if err != nil {
		return audit.SignoffEvent{}, errors.Wrap(err, "inserting signoff event")
	}
	return ev, nil
}

func (repo auditRepository) FilterEvents(ctx context.Context, filter audit.QueryFilter, ordering []core.DBOrdering) ([]audit.SignoffEvent, error) {
	var (
		clauses []string
		args    []interface{}
	)
	addClause := func(cond string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(cond, len(args)))
	}
	// lab_id and group_id are uuid columns; malformed values can never match
	if filter.LabID != "" {
		if _, err := uuid.Parse(filter.LabID); err != nil {
			return []audit.SignoffEvent{}, nil
		}
		addClause("lab_id = $%d", filter.LabID)
	}
	if filter.GroupID != "" {
		if _, err := uuid.Parse(filter.GroupID); err != nil {
			return []audit.SignoffEvent{}, nil
		}
		addClause("group_id = $%d", filter.GroupID)
	}
	if filter.PerformedBy != "" {
		addClause("performed_by = $%d", filter.PerformedBy)
	}
	if filter.Action != "" {
		addClause("action = $%d", filter.Action)
	}
	if !filter.From.IsZero() {
		addClause("performed_at >= $%d", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		addClause("performed_at <= $%d", filter.To.UTC())
	}

	query := `SELECT * FROM signoff_event`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if len(ordering) > 0 {
		orders := make([]string, 0, len(ordering))
		for _, o := range ordering {
			orders = append(orders, o.String())
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	}

	var rows []signoffEventRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying signoff events")
	}
	events := make([]audit.SignoffEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toCore())
	}
	return events, nil
}

func (repo auditRepository) CountEventsByLab(ctx context.Context, labID string) (int, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return 0, nil
	}
	var cnt int
	err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM signoff_event WHERE lab_id = $1`, labID)
	if err != nil {
		return 0, errors.Wrap(err, "counting signoff events")
	}
	return cnt, nil
}

func (repo auditRepository) DeleteEventsByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM signoff_event WHERE id IN (?)`, valid)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting signoff events")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
