package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/labtrack/core/queue"
)

type queueItemRow struct {
	ID          string    `db:"id"`
	LabID       string    `db:"lab_id"`
	GroupID     string    `db:"group_id"`
	RaisedBy    string    `db:"raised_by"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	Priority    string    `db:"priority"`
	Position    int       `db:"position"`
	RaisedAt    time.Time `db:"raised_at"`
	ClaimedBy   string    `db:"claimed_by"`
	ClaimedAt   null.Time `db:"claimed_at"`
	ResolvedAt  null.Time `db:"resolved_at"`
}

func (r queueItemRow) toCore() queue.Item {
	it := queue.Item{
		ID:          r.ID,
		LabID:       r.LabID,
		GroupID:     r.GroupID,
		RaisedBy:    r.RaisedBy,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Position:    r.Position,
		RaisedAt:    r.RaisedAt,
		ClaimedBy:   r.ClaimedBy,
	}
	if r.ClaimedAt.Valid {
		it.ClaimedAt = r.ClaimedAt.Time
	}
	if r.ResolvedAt.Valid {
		it.ResolvedAt = r.ResolvedAt.Time
	}
	return it
}

func newQueueItemRow(it queue.Item) queueItemRow {
	r := queueItemRow{
		ID:          it.ID,
		LabID:       it.LabID,
		GroupID:     it.GroupID,
		RaisedBy:    it.RaisedBy,
		Description: it.Description,
		Status:      it.Status,
		Priority:    it.Priority,
		Position:    it.Position,
		RaisedAt:    it.RaisedAt.UTC(),
		ClaimedBy:   it.ClaimedBy,
	}
	if !it.ClaimedAt.IsZero() {
		r.ClaimedAt = null.TimeFrom(it.ClaimedAt.UTC())
	}
	if !it.ResolvedAt.IsZero() {
		r.ResolvedAt = null.TimeFrom(it.ResolvedAt.UTC())
	}
	return r
}

type queueRepository struct {
	db *sqlx.DB
}

var _ queue.Repository = (*queueRepository)(nil)

func NewQueueRepository(db *sqlx.DB) *queueRepository {
	return &queueRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to queue.ErrNotFound
func (repo queueRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return queue.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// CreateItem assigns the next position from a persistent per-lab counter, so
// positions keep increasing after closed items are deleted. The counter
// upsert row-locks the lab's counter, serializing concurrent raises.
func (repo queueRepository) CreateItem(ctx context.Context, it queue.Item) (queue.Item, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return queue.Item{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.GetContext(ctx, &it.Position, `
		INSERT INTO queue_position (lab_id, n) VALUES ($1, 1)
		ON CONFLICT (lab_id) DO UPDATE SET n = queue_position.n + 1
		RETURNING n`,
		it.LabID,
	)
	if err != nil {
		return queue.Item{}, errors.Wrap(err, "assigning help queue position")
	}

	it.ID = uuid.New().String()
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO help_queue_item (id, lab_id, group_id, raised_by, description, status, priority, position, raised_at, claimed_by, claimed_at, resolved_at)
		VALUES (:id, :lab_id, :group_id, :raised_by, :description, :status, :priority, :position, :raised_at, :claimed_by, :claimed_at, :resolved_at)`,
		newQueueItemRow(it),
	)
	if err != nil {
		return queue.Item{}, errors.Wrap(err, "inserting help queue item")
	}

	if err = tx.Commit(); err != nil {
		return queue.Item{}, errors.Wrap(err, "committing help queue item")
	}
	return it, nil
}

func (repo queueRepository) GetItem(ctx context.Context, id string) (queue.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return queue.Item{}, queue.ErrNotFound
	}
	var r queueItemRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM help_queue_item WHERE id = $1`, id); err != nil {
		return queue.Item{}, repo.trapNoRowsErr(err, "finding help queue item by ID")
	}
	return r.toCore(), nil
}

func (repo queueRepository) QueryItemsByLab(ctx context.Context, labID string) ([]queue.Item, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return []queue.Item{}, nil
	}
	var rows []queueItemRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM help_queue_item WHERE lab_id = $1 ORDER BY position`, labID)
	if err != nil {
		return nil, errors.Wrap(err, "querying help queue items")
	}
	items := make([]queue.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toCore())
	}
	return items, nil
}

func (repo queueRepository) GetActiveItem(ctx context.Context, labID, groupID string) (queue.Item, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return queue.Item{}, queue.ErrNotFound
	}
	if _, err := uuid.Parse(groupID); err != nil {
		return queue.Item{}, queue.ErrNotFound
	}
	var r queueItemRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT * FROM help_queue_item
		WHERE lab_id = $1 AND group_id = $2 AND status IN ($3, $4)
		ORDER BY position LIMIT 1`,
		labID, groupID, queue.StatusWaiting, queue.StatusClaimed,
	)
	if err != nil {
		return queue.Item{}, repo.trapNoRowsErr(err, "finding active help queue item")
	}
	return r.toCore(), nil
}

func (repo queueRepository) UpdateItem(ctx context.Context, it queue.Item) (queue.Item, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE help_queue_item
		SET status = :status, priority = :priority, claimed_by = :claimed_by,
		    claimed_at = :claimed_at, resolved_at = :resolved_at
		WHERE id = :id`,
		newQueueItemRow(it),
	)
	if err != nil {
		return queue.Item{}, errors.Wrap(err, "updating help queue item")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return queue.Item{}, queue.ErrNotFound
	}
	return it, nil
}

func (repo queueRepository) DeleteClosedItems(ctx context.Context, labID string) (int, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `
		DELETE FROM help_queue_item WHERE lab_id = $1 AND status IN ($2, $3)`,
		labID, queue.StatusResolved, queue.StatusCancelled,
	)
	if err != nil {
		return 0, errors.Wrap(err, "deleting closed help queue items")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
