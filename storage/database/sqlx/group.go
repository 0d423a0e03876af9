package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/labtrack/core/group"
)

type groupRow struct {
	ID               string    `db:"id"`
	DisplayID        string    `db:"display_id"`
	LabID            string    `db:"lab_id"`
	GenerationNumber int       `db:"generation_number"`
	Status           string    `db:"status"`
	Members          null.JSON `db:"members"`
	Progress         null.JSON `db:"progress"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r groupRow) toCore() (group.Group, error) {
	grp := group.Group{
		ID:               r.ID,
		DisplayID:        r.DisplayID,
		LabID:            r.LabID,
		GenerationNumber: r.GenerationNumber,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Members.Valid {
		if err := json.Unmarshal(r.Members.JSON, &grp.Members); err != nil {
			return group.Group{}, errors.Wrap(err, "unmarshalling group members")
		}
	}
	if r.Progress.Valid {
		if err := json.Unmarshal(r.Progress.JSON, &grp.Progress); err != nil {
			return group.Group{}, errors.Wrap(err, "unmarshalling group progress")
		}
	}
	return grp, nil
}

func newGroupRow(grp group.Group) (groupRow, error) {
	members, err := json.Marshal(grp.Members)
	if err != nil {
		return groupRow{}, errors.Wrap(err, "marshalling group members")
	}
	progress, err := json.Marshal(grp.Progress)
	if err != nil {
		return groupRow{}, errors.Wrap(err, "marshalling group progress")
	}
	return groupRow{
		ID:               grp.ID,
		DisplayID:        grp.DisplayID,
		LabID:            grp.LabID,
		GenerationNumber: grp.GenerationNumber,
		Status:           grp.Status,
		Members:          null.JSONFrom(members),
		Progress:         null.JSONFrom(progress),
		CreatedAt:        grp.CreatedAt.UTC(),
		UpdatedAt:        grp.UpdatedAt.UTC(),
	}, nil
}

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to group.ErrNotFound
func (repo groupRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return group.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo groupRepository) CreateGroups(ctx context.Context, groups []group.Group) ([]group.Group, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]group.Group, 0, len(groups))
	for _, grp := range groups {
		grp.ID = uuid.New().String()
		row, err := newGroupRow(grp)
		if err != nil {
			return nil, err
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO lab_group (id, display_id, lab_id, generation_number, status, members, progress, created_at, updated_at)
			VALUES (:id, :display_id, :lab_id, :generation_number, :status, :members, :progress, :created_at, :updated_at)`,
			row,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting group")
		}
		stored = append(stored, grp)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing groups")
	}
	return stored, nil
}

func (repo groupRepository) GetGroup(ctx context.Context, filter group.GetFilter) (group.Group, error) {
	var (
		r   groupRow
		err error
	)
	switch {
	case filter.ID != "":
		if _, perr := uuid.Parse(filter.ID); perr != nil {
			return group.Group{}, group.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &r, `SELECT * FROM lab_group WHERE id = $1`, filter.ID)
	case filter.DisplayID != "" && filter.LabID != "":
		if _, perr := uuid.Parse(filter.LabID); perr != nil {
			return group.Group{}, group.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &r,
			`SELECT * FROM lab_group WHERE lab_id = $1 AND lower(display_id) = lower($2)`,
			filter.LabID, filter.DisplayID,
		)
	default:
		return group.Group{}, group.ErrNotFound
	}
	if err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, "finding group")
	}
	return r.toCore()
}

func (repo groupRepository) QueryGroupsByLab(ctx context.Context, labID string) ([]group.Group, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return []group.Group{}, nil
	}
	var rows []groupRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM lab_group WHERE lab_id = $1 ORDER BY created_at, display_id`, labID)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]group.Group, 0, len(rows))
	for _, r := range rows {
		grp, err := r.toCore()
		if err != nil {
			return nil, err
		}
		groups = append(groups, grp)
	}
	return groups, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	row, err := newGroupRow(grp)
	if err != nil {
		return group.Group{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE lab_group
		SET display_id = :display_id, status = :status, members = :members,
		    progress = :progress, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return group.Group{}, group.ErrNotFound
	}
	return grp, nil
}

func (repo groupRepository) DeleteGroupsByLab(ctx context.Context, labID string) (int, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM lab_group WHERE lab_id = $1`, labID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting groups")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

func (repo groupRepository) MaxGenerationNumber(ctx context.Context, labID string) (int, error) {
	if _, err := uuid.Parse(labID); err != nil {
		return 0, nil
	}
	var max int
	err := repo.db.GetContext(ctx, &max,
		`SELECT COALESCE(MAX(generation_number), 0) FROM lab_group WHERE lab_id = $1`, labID)
	if err != nil {
		return 0, errors.Wrap(err, "querying max generation number")
	}
	return max, nil
}
