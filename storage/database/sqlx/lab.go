// Package sqlxrepos implements the domain repositories on PostgreSQL via
// sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/lab"
)

type labRow struct {
	ID              string    `db:"id"`
	ClassID         string    `db:"class_id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	PointsTotal     int       `db:"points_total"`
	CheckpointCount int       `db:"checkpoint_count"`
	MinGroupSize    int       `db:"min_group_size"`
	MaxGroupSize    int       `db:"max_group_size"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r labRow) toCore() lab.Lab {
	return lab.Lab{
		ID:              r.ID,
		ClassID:         r.ClassID,
		Title:           r.Title,
		Description:     r.Description,
		PointsTotal:     r.PointsTotal,
		CheckpointCount: r.CheckpointCount,
		MinGroupSize:    r.MinGroupSize,
		MaxGroupSize:    r.MaxGroupSize,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func newLabRow(lb lab.Lab) labRow {
	return labRow{
		ID:              lb.ID,
		ClassID:         lb.ClassID,
		Title:           lb.Title,
		Description:     lb.Description,
		PointsTotal:     lb.PointsTotal,
		CheckpointCount: lb.CheckpointCount,
		MinGroupSize:    lb.MinGroupSize,
		MaxGroupSize:    lb.MaxGroupSize,
		CreatedAt:       lb.CreatedAt.UTC(),
		UpdatedAt:       lb.UpdatedAt.UTC(),
	}
}

type defRow struct {
	ID     string `db:"id"`
	LabID  string `db:"lab_id"`
	Number int    `db:"number"`
	Points int    `db:"points"`
}

type labRepository struct {
	db *sqlx.DB
}

var _ lab.Repository = (*labRepository)(nil)

func NewLabRepository(db *sqlx.DB) *labRepository {
	return &labRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to lab.ErrNotFound
func (repo labRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return lab.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo labRepository) CreateLab(ctx context.Context, lb lab.Lab) (lab.Lab, error) {
	lb.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO lab (id, class_id, title, description, points_total, checkpoint_count, min_group_size, max_group_size, created_at, updated_at)
		VALUES (:id, :class_id, :title, :description, :points_total, :checkpoint_count, :min_group_size, :max_group_size, :created_at, :updated_at)`,
		newLabRow(lb),
	)
	if err != nil {
		return lab.Lab{}, errors.Wrap(err, "inserting lab")
	}
	return lb, nil
}

func (repo labRepository) GetLab(ctx context.Context, id string) (lab.Lab, error) {
	if _, err := uuid.Parse(id); err != nil {
		return lab.Lab{}, lab.ErrNotFound
	}
	var r labRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM lab WHERE id = $1`, id); err != nil {
		return lab.Lab{}, repo.trapNoRowsErr(err, "finding lab by ID")
	}
	return r.toCore(), nil
}

func (repo labRepository) QueryLabsByClass(ctx context.Context, classID string) ([]lab.Lab, error) {
	if _, err := uuid.Parse(classID); err != nil {
		return []lab.Lab{}, nil
	}
	var rows []labRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM lab WHERE class_id = $1 ORDER BY created_at`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying labs")
	}
	labs := make([]lab.Lab, 0, len(rows))
	for _, r := range rows {
		labs = append(labs, r.toCore())
	}
	return labs, nil
}

func (repo labRepository) UpdateLab(ctx context.Context, lb lab.Lab) (lab.Lab, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE lab
		SET title = :title, description = :description, points_total = :points_total,
		    checkpoint_count = :checkpoint_count, min_group_size = :min_group_size,
		    max_group_size = :max_group_size, updated_at = :updated_at
		WHERE id = :id`,
		newLabRow(lb),
	)
	if err != nil {
		return lab.Lab{}, errors.Wrap(err, "updating lab")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return lab.Lab{}, lab.ErrNotFound
	}
	return lb, nil
}

func (repo labRepository) QueryCheckpointDefs(ctx context.Context, labID string) ([]lab.CheckpointDefinition, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return []lab.CheckpointDefinition{}, nil
	}
	var rows []defRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM checkpoint_def WHERE lab_id = $1 ORDER BY number`, labID)
	if err != nil {
		return nil, errors.Wrap(err, "querying checkpoint definitions")
	}
	defs := make([]lab.CheckpointDefinition, 0, len(rows))
	for _, r := range rows {
		defs = append(defs, lab.CheckpointDefinition{ID: r.ID, LabID: r.LabID, Number: r.Number, Points: r.Points})
	}
	return defs, nil
}

func (repo labRepository) SetCheckpointDefs(ctx context.Context, labID string, defs []lab.CheckpointDefinition) ([]lab.CheckpointDefinition, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM checkpoint_def WHERE lab_id = $1`, labID); err != nil {
		return nil, errors.Wrap(err, "deleting checkpoint definitions")
	}

	stored := make([]lab.CheckpointDefinition, 0, len(defs))
	for _, def := range defs {
		def.ID = uuid.New().String()
		def.LabID = labID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO checkpoint_def (id, lab_id, number, points) VALUES ($1, $2, $3, $4)`,
			def.ID, def.LabID, def.Number, def.Points,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting checkpoint definition")
		}
		stored = append(stored, def)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing checkpoint definitions")
	}
	return stored, nil
}
