package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core/lab"
)

type labRepository struct {
	db *labTable
}

var _ lab.Repository = (*labRepository)(nil)

func NewLabRepository(db *DB) *labRepository {
	return &labRepository{db: db.lab}
}

func (repo *labRepository) CreateLab(_ context.Context, lb lab.Lab) (lab.Lab, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lb.ID = uuid.New().String()
	repo.db.labs[lb.ID] = lb
	return lb, nil
}

func (repo *labRepository) GetLab(_ context.Context, id string) (lab.Lab, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lb, ok := repo.db.labs[id]; ok {
		return lb, nil
	}
	return lab.Lab{}, lab.ErrNotFound
}

func (repo *labRepository) QueryLabsByClass(_ context.Context, classID string) ([]lab.Lab, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	labs := make([]lab.Lab, 0)
	for _, lb := range repo.db.labs {
		if lb.ClassID == classID {
			labs = append(labs, lb)
		}
	}
	sort.Slice(labs, func(i, j int) bool { return labs[i].CreatedAt.Before(labs[j].CreatedAt) })
	return labs, nil
}

func (repo *labRepository) UpdateLab(_ context.Context, lb lab.Lab) (lab.Lab, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.labs[lb.ID]; !ok {
		return lab.Lab{}, lab.ErrNotFound
	}
	repo.db.labs[lb.ID] = lb
	return lb, nil
}

func (repo *labRepository) QueryCheckpointDefs(_ context.Context, labID string) ([]lab.CheckpointDefinition, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	defs := make([]lab.CheckpointDefinition, len(repo.db.defs[labID]))
	copy(defs, repo.db.defs[labID])
	return defs, nil
}

func (repo *labRepository) SetCheckpointDefs(_ context.Context, labID string, defs []lab.CheckpointDefinition) ([]lab.CheckpointDefinition, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := make([]lab.CheckpointDefinition, 0, len(defs))
	for _, def := range defs {
		def.ID = uuid.New().String()
		def.LabID = labID
		stored = append(stored, def)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Number < stored[j].Number })
	repo.db.defs[labID] = stored

	out := make([]lab.CheckpointDefinition, len(stored))
	copy(out, stored)
	return out, nil
}
