package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core/group"
)

type groupRepository struct {
	db *groupTable
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db.group}
}

// clone deep-copies a group so callers never alias stored slices.
func clone(grp group.Group) group.Group {
	members := make([]group.GroupMember, len(grp.Members))
	copy(members, grp.Members)
	grp.Members = members

	progress := make([]group.CheckpointProgress, len(grp.Progress))
	copy(progress, grp.Progress)
	grp.Progress = progress
	return grp
}

func (repo *groupRepository) CreateGroups(_ context.Context, groups []group.Group) ([]group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]group.Group, 0, len(groups))
	for _, grp := range groups {
		grp.ID = uuid.New().String()
		repo.db.nextSeq++
		repo.db.seq[grp.ID] = repo.db.nextSeq
		repo.db.groups[grp.ID] = clone(grp)
		created = append(created, grp)
	}
	return created, nil
}

func (repo *groupRepository) GetGroup(_ context.Context, filter group.GetFilter) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if grp, ok := repo.db.groups[filter.ID]; ok {
			return clone(grp), nil
		}
		return group.Group{}, group.ErrNotFound
	}

	if filter.DisplayID != "" {
		for _, grp := range repo.db.groups {
			if strings.EqualFold(grp.DisplayID, filter.DisplayID) && (filter.LabID == "" || grp.LabID == filter.LabID) {
				return clone(grp), nil
			}
		}
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) QueryGroupsByLab(_ context.Context, labID string) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := make([]group.Group, 0)
	for _, grp := range repo.db.groups {
		if grp.LabID == labID {
			groups = append(groups, clone(grp))
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return repo.db.seq[groups[i].ID] < repo.db.seq[groups[j].ID]
	})
	return groups, nil
}

func (repo *groupRepository) UpdateGroup(_ context.Context, grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.groups[grp.ID]; !ok {
		return group.Group{}, group.ErrNotFound
	}
	repo.db.groups[grp.ID] = clone(grp)
	return grp, nil
}

func (repo *groupRepository) DeleteGroupsByLab(_ context.Context, labID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for id, grp := range repo.db.groups {
		if grp.LabID == labID {
			delete(repo.db.groups, id)
			delete(repo.db.seq, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *groupRepository) MaxGenerationNumber(_ context.Context, labID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var max int
	for _, grp := range repo.db.groups {
		if grp.LabID == labID && grp.GenerationNumber > max {
			max = grp.GenerationNumber
		}
	}
	return max, nil
}
