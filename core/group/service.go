package group

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/audit"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/lab"
)

var (
	ErrNotFound           = errors.New("group not found")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// defaultPerformer signs checkpoints passed through the quick "pass next"
// path when no explicit performer is provided.
var defaultPerformer = Performer{Name: "Staff"}

type (
	Repository interface {
		CreateGroups(ctx context.Context, groups []Group) ([]Group, error)
		GetGroup(ctx context.Context, filter GetFilter) (Group, error)
		QueryGroupsByLab(ctx context.Context, labID string) ([]Group, error)
		UpdateGroup(ctx context.Context, grp Group) (Group, error)
		DeleteGroupsByLab(ctx context.Context, labID string) (int, error)
		// MaxGenerationNumber returns 0 when the lab has no groups.
		MaxGenerationNumber(ctx context.Context, labID string) (int, error)
	}

	Service struct {
		repo    Repository
		labs    *lab.Service
		classes *class.Service
		trail   *audit.Service
		events  core.EventPublisher
		logger  core.Logger

		// serializes read-modify-write per group; the stores have no
		// locking of their own, so concurrent signoffs on one group would
		// otherwise lose updates.
		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}
)

func NewService(
	repo Repository,
	labs *lab.Service,
	classes *class.Service,
	trail *audit.Service,
	events core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		labs:    labs,
		classes: classes,
		trail:   trail,
		events:  events,
		logger:  logger,
		locks:   map[string]*sync.Mutex{},
	}
}

func (svc *Service) lockGroup(id string) *sync.Mutex {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	lock, ok := svc.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		svc.locks[id] = lock
	}
	return lock
}

// ensureProgress materializes one Unset progress entry per lab checkpoint on
// a group whose progress list is still empty, and persists the result.
// Idempotent: a populated list is returned untouched, so the list is always
// either empty or exactly the lab's checkpoint count long. The caller must
// hold the group's lock since a materialized list is written back.
func (svc *Service) ensureProgress(ctx context.Context, grp Group) (Group, error) {
	if len(grp.Progress) > 0 {
		return grp, nil
	}

	lb, err := svc.labs.Get(ctx, grp.LabID)
	if err != nil {
		return Group{}, errors.Wrap(err, "getting lab")
	}
	defs, err := svc.labs.ResolveCheckpoints(ctx, lb)
	if err != nil {
		return Group{}, err
	}
	if len(defs) == 0 {
		return grp, nil
	}

	grp.Progress = make([]CheckpointProgress, 0, len(defs))
	for _, def := range defs {
		grp.Progress = append(grp.Progress, CheckpointProgress{Number: def.Number, Status: CheckpointUnset})
	}
	grp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGroup(ctx, grp)
}

// getLocked fetches a group by ID and materializes its progress list. The
// caller must hold the group's lock.
func (svc *Service) getLocked(ctx context.Context, id string) (Group, error) {
	grp, err := svc.repo.GetGroup(ctx, GetFilter{ID: id})
	if err != nil {
		return Group{}, err
	}
	return svc.ensureProgress(ctx, grp)
}

func (svc *Service) Get(ctx context.Context, filter GetFilter) (Group, error) {
	grp, err := svc.repo.GetGroup(ctx, filter)
	if err != nil {
		return Group{}, err
	}
	if len(grp.Progress) > 0 {
		return grp, nil
	}

	// re-read under the lock so the materializing write cannot clobber a
	// signoff that committed after the unlocked fetch.
	lock := svc.lockGroup(grp.ID)
	lock.Lock()
	defer lock.Unlock()
	return svc.getLocked(ctx, grp.ID)
}

func (svc *Service) QueryByLab(ctx context.Context, labID string) ([]Group, error) {
	groups, err := svc.repo.QueryGroupsByLab(ctx, labID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if len(groups[i].Progress) > 0 {
			continue
		}
		lock := svc.lockGroup(groups[i].ID)
		lock.Lock()
		groups[i], err = svc.getLocked(ctx, groups[i].ID)
		lock.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// signoff applies one pass/return mutation on a group's checkpoint. The
// group is persisted first; the audit append and the notification are
// side effects that never roll the mutation back.
func (svc *Service) signoff(
	ctx context.Context,
	groupID string,
	number int,
	action string,
	performer Performer,
	notes string,
) (audit.SignoffEvent, CheckpointProgress, error) {
	lock := svc.lockGroup(groupID)
	lock.Lock()
	defer lock.Unlock()

	grp, err := svc.getLocked(ctx, groupID)
	if err != nil {
		return audit.SignoffEvent{}, CheckpointProgress{}, err
	}
	return svc.signoffLocked(ctx, grp, number, action, performer, notes)
}

// signoffLocked applies the mutation on an already-fetched group. The caller
// must hold the group's lock.
func (svc *Service) signoffLocked(
	ctx context.Context,
	grp Group,
	number int,
	action string,
	performer Performer,
	notes string,
) (audit.SignoffEvent, CheckpointProgress, error) {
	progress := grp.FindProgress(number)
	if progress == nil {
		return audit.SignoffEvent{}, CheckpointProgress{}, ErrCheckpointNotFound
	}

	now := time.Now().UTC()
	progress.Notes = notes
	progress.SignedAt = now
	if action == audit.ActionPass {
		progress.Status = CheckpointPassed
		progress.SignerID = performer.ID
		progress.SignerName = performer.Name
	} else {
		progress.Status = CheckpointReturned
		progress.SignerID = ""
		progress.SignerName = ""
	}
	grp.refreshStatus()
	grp.UpdatedAt = now

	grp, err := svc.repo.UpdateGroup(ctx, grp)
	if err != nil {
		return audit.SignoffEvent{}, CheckpointProgress{}, errors.Wrap(err, "updating group")
	}

	num := number
	ev := audit.SignoffEvent{
		LabID:            grp.LabID,
		GroupID:          grp.ID,
		CheckpointNumber: &num,
		Action:           action,
		PerformedBy:      performer.ID,
		PerformedAt:      now,
		Notes:            notes,
	}
	// known consistency gap: the mutation is not rolled back when the audit
	// append fails; it is logged and surfaced as a lower-severity event.
	if logged, aErr := svc.trail.Log(ctx, ev); aErr != nil {
		svc.logger.Warn(fmt.Sprintf("signoff persisted but audit append failed: %v", aErr), aErr)
	} else {
		ev = logged
	}

	evType := core.EventCheckpointPassed
	if action == audit.ActionReturn {
		evType = core.EventCheckpointReturned
	}
	svc.events.Publish(core.Event{
		Type:    evType,
		LabID:   grp.LabID,
		GroupID: grp.ID,
		At:      now,
		Data:    *grp.FindProgress(number),
	})

	return ev, *grp.FindProgress(number), nil
}

// Pass marks a checkpoint Passed and records who signed it.
func (svc *Service) Pass(ctx context.Context, groupID string, number int, performer Performer, notes string) (audit.SignoffEvent, CheckpointProgress, error) {
	return svc.signoff(ctx, groupID, number, audit.ActionPass, performer, notes)
}

// Return marks a checkpoint Returned and clears its signer.
func (svc *Service) Return(ctx context.Context, groupID string, number int, performer Performer, notes string) (audit.SignoffEvent, CheckpointProgress, error) {
	return svc.signoff(ctx, groupID, number, audit.ActionReturn, performer, notes)
}

// Toggle behaves like Pass when completed is true, else like Return. Unlike
// those, it fails InvalidState when the group has no checkpoints or the
// checkpoint number is absent.
func (svc *Service) Toggle(ctx context.Context, groupID string, number int, completed bool, performer Performer, notes string) (CheckpointProgress, error) {
	lock := svc.lockGroup(groupID)
	lock.Lock()
	defer lock.Unlock()

	grp, err := svc.getLocked(ctx, groupID)
	if err != nil {
		return CheckpointProgress{}, err
	}
	if len(grp.Progress) == 0 {
		return CheckpointProgress{}, core.NewInvalidStateError("group has no checkpoints")
	}
	if grp.FindProgress(number) == nil {
		return CheckpointProgress{}, core.NewInvalidStateError(fmt.Sprintf("group has no checkpoint %d", number))
	}

	action := audit.ActionReturn
	if completed {
		action = audit.ActionPass
	}
	_, progress, err := svc.signoffLocked(ctx, grp, number, action, performer, notes)
	return progress, err
}

// PassNext marks the first non-Passed checkpoint (in ascending order)
// Passed. It fails InvalidState, without mutating anything, when the list is
// empty or every checkpoint is already Passed.
func (svc *Service) PassNext(ctx context.Context, groupID string, performer ...Performer) (CheckpointProgress, error) {
	lock := svc.lockGroup(groupID)
	lock.Lock()
	defer lock.Unlock()

	grp, err := svc.getLocked(ctx, groupID)
	if err != nil {
		return CheckpointProgress{}, err
	}
	if len(grp.Progress) == 0 {
		return CheckpointProgress{}, core.NewInvalidStateError("group has no checkpoints")
	}

	next := 0
	for _, p := range grp.Progress {
		if p.Status != CheckpointPassed && (next == 0 || p.Number < next) {
			next = p.Number
		}
	}
	if next == 0 {
		return CheckpointProgress{}, core.NewInvalidStateError("all checkpoints already passed")
	}

	by := defaultPerformer
	if len(performer) > 0 {
		by = performer[0]
	}
	_, progress, err := svc.signoffLocked(ctx, grp, next, audit.ActionPass, by, "")
	return progress, err
}
