package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core/class"
)

type classRepository struct {
	db *classTable
}

var _ class.Repository = (*classRepository)(nil)

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cls.ID = uuid.New().String()
	repo.db.classes[cls.ID] = cls
	return cls, nil
}

func (repo *classRepository) GetClass(_ context.Context, id string) (class.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) CheckEnrollmentUniqueness(_ context.Context, classID, userExternalID string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.ClassID == classID && enr.UserExternalID == userExternalID {
			return class.ErrEnrollmentExists
		}
	}
	return nil
}

func (repo *classRepository) CreateEnrollment(_ context.Context, enr class.Enrollment) (class.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	enr.ID = uuid.New().String()
	repo.db.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *classRepository) QueryEnrollmentsByClass(_ context.Context, classID string) ([]class.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrs := make([]class.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.ClassID == classID {
			enrs = append(enrs, enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool {
		if enrs[i].CreatedAt.Equal(enrs[j].CreatedAt) {
			return enrs[i].UserExternalID < enrs[j].UserExternalID
		}
		return enrs[i].CreatedAt.Before(enrs[j].CreatedAt)
	})
	return enrs, nil
}

func (repo *classRepository) UpdateEnrollment(_ context.Context, enr class.Enrollment) (class.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return class.Enrollment{}, class.ErrNotFound
	}
	repo.db.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *classRepository) CreateRosterEntries(_ context.Context, entries []class.RosterEntry) ([]class.RosterEntry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]class.RosterEntry, 0, len(entries))
	for _, entry := range entries {
		entry.ID = uuid.New().String()
		repo.db.roster = append(repo.db.roster, entry)
		created = append(created, entry)
	}
	return created, nil
}

func (repo *classRepository) QueryRosterByClass(_ context.Context, classID string) ([]class.RosterEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]class.RosterEntry, 0)
	for _, entry := range repo.db.roster {
		if entry.ClassID == classID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
