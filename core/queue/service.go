package queue

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
)

var ErrNotFound = errors.New("help queue item not found")

type (
	Repository interface {
		// CreateItem persists a new item, assigning its ID and the next
		// Position for the lab. Position assignment is atomic: concurrent
		// raises for one lab never observe the same position.
		CreateItem(ctx context.Context, it Item) (Item, error)
		GetItem(ctx context.Context, id string) (Item, error)
		QueryItemsByLab(ctx context.Context, labID string) ([]Item, error)
		// GetActiveItem returns the Waiting/Claimed item of a (lab, group)
		// pair, or ErrNotFound when none exists.
		GetActiveItem(ctx context.Context, labID, groupID string) (Item, error)
		UpdateItem(ctx context.Context, it Item) (Item, error)
		DeleteClosedItems(ctx context.Context, labID string) (int, error)
	}

	Service struct {
		repo   Repository
		events core.EventPublisher
	}
)

func NewService(repo Repository, events core.EventPublisher) *Service {
	return &Service{repo: repo, events: events}
}

func (svc *Service) publish(typ string, it Item) {
	svc.events.Publish(core.Event{
		Type:    typ,
		LabID:   it.LabID,
		GroupID: it.GroupID,
		At:      time.Now().UTC(),
		Data:    it,
	})
}

// Raise adds a help request to the lab's queue. A group may hold at most one
// active request per lab at any time.
func (svc *Service) Raise(ctx context.Context, ni NewItem) (Item, error) {
	if _, err := svc.repo.GetActiveItem(ctx, ni.LabID, ni.GroupID); err == nil {
		return Item{}, core.NewConflictError("group already has an active help request in this lab")
	} else if errors.Cause(err) != ErrNotFound {
		return Item{}, errors.Wrap(err, "checking active help request")
	}

	it := Item{
		LabID:       ni.LabID,
		GroupID:     ni.GroupID,
		RaisedBy:    ni.RaisedBy,
		Description: ni.Description,
		Status:      StatusWaiting,
		Priority:    PriorityNormal,
		RaisedAt:    time.Now().UTC(),
	}
	it, err := svc.repo.CreateItem(ctx, it)
	if err != nil {
		return Item{}, errors.Wrap(err, "creating help queue item")
	}

	svc.publish(core.EventQueueRaised, it)
	return it, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Item, error) {
	return svc.repo.GetItem(ctx, id)
}

// QueryByLab returns all of a lab's items ordered by position.
func (svc *Service) QueryByLab(ctx context.Context, labID string) ([]Item, error) {
	return svc.repo.QueryItemsByLab(ctx, labID)
}

func (svc *Service) Claim(ctx context.Context, itemID, userID string) (Item, error) {
	it, err := svc.repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if it.Status != StatusWaiting {
		return Item{}, core.NewInvalidStateError("only a waiting help request can be claimed")
	}

	it.Status = StatusClaimed
	it.ClaimedBy = userID
	it.ClaimedAt = time.Now().UTC()
	if it, err = svc.repo.UpdateItem(ctx, it); err != nil {
		return Item{}, errors.Wrap(err, "claiming help queue item")
	}

	svc.publish(core.EventQueueClaimed, it)
	return it, nil
}

func (svc *Service) Resolve(ctx context.Context, itemID string) (Item, error) {
	it, err := svc.repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if it.Status != StatusClaimed {
		return Item{}, core.NewInvalidStateError("only a claimed help request can be resolved")
	}

	it.Status = StatusResolved
	it.ResolvedAt = time.Now().UTC()
	if it, err = svc.repo.UpdateItem(ctx, it); err != nil {
		return Item{}, errors.Wrap(err, "resolving help queue item")
	}

	svc.publish(core.EventQueueResolved, it)
	return it, nil
}

func (svc *Service) Cancel(ctx context.Context, itemID string) (Item, error) {
	it, err := svc.repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if !it.IsActive() {
		return Item{}, core.NewInvalidStateError("only an active help request can be cancelled")
	}

	it.Status = StatusCancelled
	if it, err = svc.repo.UpdateItem(ctx, it); err != nil {
		return Item{}, errors.Wrap(err, "cancelling help queue item")
	}

	svc.publish(core.EventQueueCancelled, it)
	return it, nil
}

// SetUrgent bumps an item's priority; idempotent.
func (svc *Service) SetUrgent(ctx context.Context, itemID string) (Item, error) {
	it, err := svc.repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if it.Priority == PriorityUrgent {
		return it, nil
	}

	it.Priority = PriorityUrgent
	if it, err = svc.repo.UpdateItem(ctx, it); err != nil {
		return Item{}, errors.Wrap(err, "updating help queue item priority")
	}

	svc.publish(core.EventQueueUrgent, it)
	return it, nil
}

// ClearClosed deletes all resolved/cancelled items of a lab. Pure cleanup;
// no audit trail requirement.
func (svc *Service) ClearClosed(ctx context.Context, labID string) (int, error) {
	return svc.repo.DeleteClosedItems(ctx, labID)
}

func (svc *Service) Stats(ctx context.Context, labID string) (Stats, error) {
	items, err := svc.repo.QueryItemsByLab(ctx, labID)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, it := range items {
		switch it.Status {
		case StatusWaiting:
			stats.Waiting++
		case StatusClaimed:
			stats.Claimed++
		}
	}
	stats.Active = stats.Waiting + stats.Claimed
	return stats, nil
}
