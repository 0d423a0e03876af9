package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core/class"
)

type classRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Term      string    `db:"term"`
	CreatedAt time.Time `db:"created_at"`
}

type enrollmentRow struct {
	ID             string    `db:"id"`
	ClassID        string    `db:"class_id"`
	UserExternalID string    `db:"user_external_id"`
	FirstName      string    `db:"first_name"`
	LastName       string    `db:"last_name"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Role           string    `db:"role"`
	Active         bool      `db:"active"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r enrollmentRow) toCore() class.Enrollment {
	return class.Enrollment{
		ID:             r.ID,
		ClassID:        r.ClassID,
		UserExternalID: r.UserExternalID,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Name:           r.Name,
		Email:          r.Email,
		Role:           r.Role,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
	}
}

func newEnrollmentRow(enr class.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:             enr.ID,
		ClassID:        enr.ClassID,
		UserExternalID: enr.UserExternalID,
		FirstName:      enr.FirstName,
		LastName:       enr.LastName,
		Name:           enr.Name,
		Email:          enr.Email,
		Role:           enr.Role,
		Active:         enr.Active,
		CreatedAt:      enr.CreatedAt.UTC(),
	}
}

type rosterRow struct {
	ID         string `db:"id"`
	ClassID    string `db:"class_id"`
	Name       string `db:"name"`
	ExternalID string `db:"external_id"`
	SISUserID  string `db:"sis_user_id"`
	SISLoginID string `db:"sis_login_id"`
	Section    string `db:"section"`
}

func (r rosterRow) toCore() class.RosterEntry {
	return class.RosterEntry{
		ID:         r.ID,
		ClassID:    r.ClassID,
		Name:       r.Name,
		ExternalID: r.ExternalID,
		SISUserID:  r.SISUserID,
		SISLoginID: r.SISLoginID,
		Section:    r.Section,
	}
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to class.ErrNotFound
func (repo classRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return class.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO class (id, name, term, created_at) VALUES ($1, $2, $3, $4)`,
		cls.ID, cls.Name, cls.Term, cls.CreatedAt.UTC(),
	)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) GetClass(ctx context.Context, id string) (class.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return class.Class{}, class.ErrNotFound
	}
	var r classRow
	if err := repo.db.GetContext(ctx, &r, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return class.Class{}, repo.trapNoRowsErr(err, "finding class by ID")
	}
	return class.Class{ID: r.ID, Name: r.Name, Term: r.Term, CreatedAt: r.CreatedAt}, nil
}

func (repo classRepository) CheckEnrollmentUniqueness(ctx context.Context, classID, userExternalID string) error {
	if _, err := uuid.Parse(classID); err != nil {
		return nil
	}
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE class_id = $1 AND user_external_id = $2)`,
		classID, userExternalID,
	)
	if err != nil {
		return errors.Wrap(err, "checking enrollment uniqueness")
	}
	if exists {
		return class.ErrEnrollmentExists
	}
	return nil
}

func (repo classRepository) CreateEnrollment(ctx context.Context, enr class.Enrollment) (class.Enrollment, error) {
	enr.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, class_id, user_external_id, first_name, last_name, name, email, role, active, created_at)
		VALUES (:id, :class_id, :user_external_id, :first_name, :last_name, :name, :email, :role, :active, :created_at)`,
		newEnrollmentRow(enr),
	)
	if err != nil {
		return class.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo classRepository) QueryEnrollmentsByClass(ctx context.Context, classID string) ([]class.Enrollment, error) {
	if _, err := uuid.Parse(classID); err != nil {
		return []class.Enrollment{}, nil
	}
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM enrollment WHERE class_id = $1 ORDER BY created_at`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]class.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toCore())
	}
	return enrs, nil
}

func (repo classRepository) UpdateEnrollment(ctx context.Context, enr class.Enrollment) (class.Enrollment, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE enrollment
		SET first_name = :first_name, last_name = :last_name, name = :name,
		    email = :email, role = :role, active = :active
		WHERE id = :id`,
		newEnrollmentRow(enr),
	)
	if err != nil {
		return class.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return class.Enrollment{}, class.ErrNotFound
	}
	return enr, nil
}

func (repo classRepository) CreateRosterEntries(ctx context.Context, entries []class.RosterEntry) ([]class.RosterEntry, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]class.RosterEntry, 0, len(entries))
	for _, entry := range entries {
		entry.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO roster_entry (id, class_id, name, external_id, sis_user_id, sis_login_id, section)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.ID, entry.ClassID, entry.Name, entry.ExternalID, entry.SISUserID, entry.SISLoginID, entry.Section,
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting roster entry")
		}
		stored = append(stored, entry)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing roster entries")
	}
	return stored, nil
}

func (repo classRepository) QueryRosterByClass(ctx context.Context, classID string) ([]class.RosterEntry, error) {
	if _, err := uuid.Parse(classID); err != nil {
		return []class.RosterEntry{}, nil
	}
	var rows []rosterRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM roster_entry WHERE class_id = $1 ORDER BY name`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying roster")
	}
	entries := make([]class.RosterEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toCore())
	}
	return entries, nil
}
