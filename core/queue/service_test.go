package queue_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/queue"
	notifysvc "github.com/trezcool/labtrack/services/notify"
	inmemdb "github.com/trezcool/labtrack/storage/database/inmem"
)

func newQueueService() (*queue.Service, *notifysvc.Recorder) {
	recorder := notifysvc.NewRecorder()
	return queue.NewService(inmemdb.NewQueueRepository(inmemdb.NewDB()), recorder), recorder
}

func raise(t *testing.T, svc *queue.Service, labID, groupID string) queue.Item {
	t.Helper()
	it, err := svc.Raise(context.Background(), queue.NewItem{LabID: labID, GroupID: groupID, RaisedBy: "u1"})
	if err != nil {
		t.Fatalf("Raise() failed: %v", err)
	}
	return it
}

func assertInvalidState(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	_, ok := errors.Cause(err).(*core.InvalidStateError)
	assert.True(t, ok, "want InvalidStateError, got %T", errors.Cause(err))
}

func TestServiceRaise(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newQueueService()

	it := raise(t, svc, "lab1", "g1")
	assert.Equal(t, queue.StatusWaiting, it.Status)
	assert.Equal(t, queue.PriorityNormal, it.Priority)
	assert.Equal(t, 1, it.Position)

	// a group holds at most one active request per lab
	_, err := svc.Raise(ctx, queue.NewItem{LabID: "lab1", GroupID: "g1", RaisedBy: "u2"})
	require.Error(t, err)
	_, isConflict := errors.Cause(err).(*core.ConflictError)
	assert.True(t, isConflict, "want ConflictError, got %T", errors.Cause(err))

	// other groups and other labs are unaffected
	it2 := raise(t, svc, "lab1", "g2")
	assert.Equal(t, 2, it2.Position)
	other := raise(t, svc, "lab2", "g1")
	assert.Equal(t, 1, other.Position)

	events := recorder.Events()
	require.Len(t, events, 3)
	assert.Equal(t, core.EventQueueRaised, events[0].Type)
}

func TestServicePositionsNeverReused(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQueueService()

	raise(t, svc, "lab1", "g1")
	raise(t, svc, "lab1", "g2")
	it3 := raise(t, svc, "lab1", "g3")
	assert.Equal(t, 3, it3.Position)

	// closing and clearing does not free positions
	_, err := svc.Cancel(ctx, it3.ID)
	require.NoError(t, err)
	count, err := svc.ClearClosed(ctx, "lab1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	it4 := raise(t, svc, "lab1", "g3")
	assert.Equal(t, 4, it4.Position)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQueueService()

	it := raise(t, svc, "lab1", "g1")

	// resolve requires claimed
	_, err := svc.Resolve(ctx, it.ID)
	assertInvalidState(t, err)

	it, err = svc.Claim(ctx, it.ID, "staff1")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusClaimed, it.Status)
	assert.Equal(t, "staff1", it.ClaimedBy)
	assert.False(t, it.ClaimedAt.IsZero())

	// claim requires waiting
	_, err = svc.Claim(ctx, it.ID, "staff2")
	assertInvalidState(t, err)

	it, err = svc.Resolve(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusResolved, it.Status)
	assert.False(t, it.ResolvedAt.IsZero())

	// closed items cannot be cancelled
	_, err = svc.Cancel(ctx, it.ID)
	assertInvalidState(t, err)

	_, err = svc.Claim(ctx, "b5507657-29ba-4a4e-9b3e-45454f33b0b4", "staff1")
	assert.Equal(t, queue.ErrNotFound, errors.Cause(err))
}

func TestServiceSetUrgent(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newQueueService()

	it := raise(t, svc, "lab1", "g1")
	recorder.Reset()

	it, err := svc.SetUrgent(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.PriorityUrgent, it.Priority)
	require.Len(t, recorder.Events(), 1)

	// idempotent: no second event
	it, err = svc.SetUrgent(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.PriorityUrgent, it.Priority)
	assert.Len(t, recorder.Events(), 1)
}

func TestServiceStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newQueueService()

	it1 := raise(t, svc, "lab1", "g1")
	raise(t, svc, "lab1", "g2")
	it3 := raise(t, svc, "lab1", "g3")

	_, err := svc.Claim(ctx, it1.ID, "staff1")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, it3.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "lab1")
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{Waiting: 1, Claimed: 1, Active: 2}, stats)
}
