package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
)

var (
	ErrNotFound         = errors.New("class not found")
	ErrEnrollmentExists = errors.New("user is already enrolled in this class")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		// CheckEnrollmentUniqueness returns ErrEnrollmentExists when the
		// (class, external id) pair is already enrolled.
		CheckEnrollmentUniqueness(ctx context.Context, classID, userExternalID string) error
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryEnrollmentsByClass(ctx context.Context, classID string) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		CreateRosterEntries(ctx context.Context, entries []RosterEntry) ([]RosterEntry, error)
		QueryRosterByClass(ctx context.Context, classID string) ([]RosterEntry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateClass(ctx context.Context, name, term string) (Class, error) {
	cls := Class{
		Name:      core.CleanString(name),
		Term:      core.CleanString(term),
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) Get(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if err := svc.repo.CheckEnrollmentUniqueness(ctx, ne.ClassID, ne.UserExternalID); err != nil {
		if errors.Cause(err) == ErrEnrollmentExists {
			return Enrollment{}, core.NewConflictError(err.Error())
		}
		return Enrollment{}, err
	}

	role := ne.Role
	if role == "" {
		role = RoleStudent
	}
	enr := Enrollment{
		ClassID:        ne.ClassID,
		UserExternalID: ne.UserExternalID,
		FirstName:      ne.FirstName,
		LastName:       ne.LastName,
		Name:           ne.Name,
		Email:          ne.Email,
		Role:           role,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *Service) Enrollments(ctx context.Context, classID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByClass(ctx, classID)
}

// ActiveStudents returns the active student enrollments of a class; this is
// the population used for group formation and grade export seeding.
func (svc *Service) ActiveStudents(ctx context.Context, classID string) ([]Enrollment, error) {
	enrs, err := svc.repo.QueryEnrollmentsByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	students := make([]Enrollment, 0, len(enrs))
	for _, enr := range enrs {
		if enr.Active && enr.Role == RoleStudent {
			students = append(students, enr)
		}
	}
	return students, nil
}

func (svc *Service) Deactivate(ctx context.Context, enr Enrollment) (Enrollment, error) {
	enr.Active = false
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *Service) ImportRoster(ctx context.Context, classID string, entries []RosterEntry) ([]RosterEntry, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].ClassID = classID
		entries[i].Name = core.CleanString(entries[i].Name)
	}
	return svc.repo.CreateRosterEntries(ctx, entries)
}

func (svc *Service) Roster(ctx context.Context, classID string) ([]RosterEntry, error) {
	return svc.repo.QueryRosterByClass(ctx, classID)
}
