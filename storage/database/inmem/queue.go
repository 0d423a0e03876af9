package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/labtrack/core/queue"
)

type queueRepository struct {
	db *queueTable
}

var _ queue.Repository = (*queueRepository)(nil)

func NewQueueRepository(db *DB) *queueRepository {
	return &queueRepository{db: db.queue}
}

func (repo *queueRepository) CreateItem(_ context.Context, it queue.Item) (queue.Item, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// the per-lab counter only ever increases, so positions are never
	// reused even after items are deleted
	repo.db.positions[it.LabID]++
	it.ID = uuid.New().String()
	it.Position = repo.db.positions[it.LabID]
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *queueRepository) GetItem(_ context.Context, id string) (queue.Item, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if it, ok := repo.db.items[id]; ok {
		return it, nil
	}
	return queue.Item{}, queue.ErrNotFound
}

func (repo *queueRepository) QueryItemsByLab(_ context.Context, labID string) ([]queue.Item, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]queue.Item, 0)
	for _, it := range repo.db.items {
		if it.LabID == labID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (repo *queueRepository) GetActiveItem(_ context.Context, labID, groupID string) (queue.Item, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, it := range repo.db.items {
		if it.LabID == labID && it.GroupID == groupID && it.IsActive() {
			return it, nil
		}
	}
	return queue.Item{}, queue.ErrNotFound
}

func (repo *queueRepository) UpdateItem(_ context.Context, it queue.Item) (queue.Item, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.items[it.ID]; !ok {
		return queue.Item{}, queue.ErrNotFound
	}
	repo.db.items[it.ID] = it
	return it, nil
}

func (repo *queueRepository) DeleteClosedItems(_ context.Context, labID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for id, it := range repo.db.items {
		if it.LabID == labID && it.IsClosed() {
			delete(repo.db.items, id)
			cnt++
		}
	}
	return cnt, nil
}
