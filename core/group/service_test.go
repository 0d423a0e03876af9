package group_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/audit"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/group"
	"github.com/trezcool/labtrack/core/lab"
	notifysvc "github.com/trezcool/labtrack/services/notify"
	inmemdb "github.com/trezcool/labtrack/storage/database/inmem"
	testutil "github.com/trezcool/labtrack/tests"
)

type groupEnv struct {
	svc       *group.Service
	labRepo   lab.Repository
	classRepo class.Repository
	groupRepo group.Repository
	auditSvc  *audit.Service
	recorder  *notifysvc.Recorder
}

func newGroupEnv() *groupEnv {
	db := inmemdb.NewDB()
	env := &groupEnv{
		labRepo:   inmemdb.NewLabRepository(db),
		classRepo: inmemdb.NewClassRepository(db),
		groupRepo: inmemdb.NewGroupRepository(db),
		recorder:  notifysvc.NewRecorder(),
	}
	env.auditSvc = audit.NewService(inmemdb.NewAuditRepository(db))
	env.svc = group.NewService(
		env.groupRepo,
		lab.NewService(env.labRepo),
		class.NewService(env.classRepo),
		env.auditSvc,
		env.recorder,
		testutil.NopLogger{},
	)
	return env
}

func TestServiceGetInitializesProgress(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	lb := testutil.CreateLab(t, env.labRepo, "class1", "Lab 1", 10, 4)
	grp := testutil.CreateGroup(t, env.groupRepo, lb.ID, "Group 1", 1, testutil.Member("u1", "Ada"))

	got, err := env.svc.Get(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	require.Len(t, got.Progress, 4)
	for i, p := range got.Progress {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, group.CheckpointUnset, p.Status)
	}

	// idempotent: a second read does not reset anything
	_, _, err = env.svc.Pass(ctx, grp.ID, 2, group.Performer{ID: "staff1", Name: "Staff One"}, "")
	require.NoError(t, err)
	got, err = env.svc.Get(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	require.Len(t, got.Progress, 4)
	assert.Equal(t, group.CheckpointPassed, got.FindProgress(2).Status)
}

func TestServiceGetByDisplayID(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	lb := testutil.CreateLab(t, env.labRepo, "class1", "Lab 1", 10, 2)
	grp := testutil.CreateGroup(t, env.groupRepo, lb.ID, "Group 1", 1)

	got, err := env.svc.Get(ctx, group.GetFilter{DisplayID: "group 1", LabID: lb.ID})
	require.NoError(t, err)
	assert.Equal(t, grp.ID, got.ID)

	_, err = env.svc.Get(ctx, group.GetFilter{DisplayID: "Group 9", LabID: lb.ID})
	assert.Equal(t, group.ErrNotFound, errors.Cause(err))
}

func TestServicePassAndReturn(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	lb := testutil.CreateLab(t, env.labRepo, "class1", "Lab 1", 10, 3)
	grp := testutil.CreateGroup(t, env.groupRepo, lb.ID, "Group 1", 1, testutil.Member("u1", "Ada"))
	staff := group.Performer{ID: "staff1", Name: "Staff One"}

	ev, progress, err := env.svc.Pass(ctx, grp.ID, 1, staff, "looks good")
	require.NoError(t, err)
	assert.Equal(t, group.CheckpointPassed, progress.Status)
	assert.Equal(t, "staff1", progress.SignerID)
	assert.Equal(t, "Staff One", progress.SignerName)
	assert.Equal(t, "looks good", progress.Notes)
	assert.False(t, progress.SignedAt.IsZero())
	assert.Equal(t, audit.ActionPass, ev.Action)
	firstSignedAt := progress.SignedAt

	// group status reflects partial progress
	got, err := env.svc.Get(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	assert.Equal(t, group.StatusInProgress, got.Status)

	// returning clears the signer and keeps only the last notes
	time.Sleep(time.Millisecond)
	_, progress, err = env.svc.Return(ctx, grp.ID, 1, staff, "needs work")
	require.NoError(t, err)
	assert.Equal(t, group.CheckpointReturned, progress.Status)
	assert.Empty(t, progress.SignerID)
	assert.Empty(t, progress.SignerName)
	assert.Equal(t, "needs work", progress.Notes)
	assert.True(t, progress.SignedAt.After(firstSignedAt))

	// unknown checkpoint number
	_, _, err = env.svc.Pass(ctx, grp.ID, 9, staff, "")
	assert.Equal(t, group.ErrCheckpointNotFound, errors.Cause(err))

	// every mutation appended to the trail
	events, err := env.auditSvc.Query(ctx, audit.QueryFilter{GroupID: grp.ID})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestServicePassAllSignsOff(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	lb := testutil.CreateLab(t, env.labRepo, "class1", "Lab 1", 10, 2)
	grp := testutil.CreateGroup(t, env.groupRepo, lb.ID, "Group 1", 1)
	staff := group.Performer{ID: "staff1", Name: "Staff One"}

	_, _, err := env.svc.Pass(ctx, grp.ID, 1, staff, "")
	require.NoError(t, err)
	_, _, err = env.svc.Pass(ctx, grp.ID, 2, staff, "")
	require.NoError(t, err)

	got, err := env.svc.Get(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	assert.Equal(t, group.StatusSignedOff, got.Status)

	// returning one reopens the group
	_, _, err = env.svc.Return(ctx, grp.ID, 2, staff, "")
	require.NoError(t, err)
	got, err = env.svc.Get(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	assert.Equal(t, group.StatusInProgress, got.Status)
}

func TestServiceToggle(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	lb := testutil.CreateLab(t, env.labRepo, "class1", "Lab 1", 10, 2)
	grp := testutil.CreateGroup(t, env.groupRepo, lb.ID, "Group 1", 1)
	staff := group.Performer{ID: "staff1", Name: "Staff One"}

	progress, err := env.svc.Toggle(ctx, grp.ID, 1, true, staff, "")
	require.NoError(t, err)
	assert.Equal(t, group.CheckpointPassed, progress.Status)

	progress, err = env.svc.Toggle(ctx, grp.ID, 1, false, staff, "")
	require.NoError(t, err)
	assert.Equal(t, group.CheckpointReturned, progress.Status)

	// absent checkpoint is an invalid state, not a 404
	_, err = env.svc.Toggle(ctx, grp.ID, 9, true, staff, "")
	_, ok := errors.Cause(err).(*core.InvalidStateError)
	assert.True(t, ok, "want InvalidStateError, got %T", errors.Cause(err))
}

func TestServicePassNext(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	lb := testutil.CreateLab(t, env.labRepo, "class1", "Lab 1", 10, 3)
	grp := testutil.CreateGroup(t, env.groupRepo, lb.ID, "Group 1", 1)
	staff := group.Performer{ID: "staff1", Name: "Staff One"}

	progress, err := env.svc.PassNext(ctx, grp.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Number)

	// a returned checkpoint is eligible again
	_, _, err = env.svc.Return(ctx, grp.ID, 1, staff, "")
	require.NoError(t, err)
	progress, err = env.svc.PassNext(ctx, grp.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Number)

	progress, err = env.svc.PassNext(ctx, grp.ID) // default performer
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Number)
	assert.Equal(t, "Staff", progress.SignerName)

	_, err = env.svc.PassNext(ctx, grp.ID, staff)
	require.NoError(t, err)

	// all passed: invalid state, nothing mutated
	_, err = env.svc.PassNext(ctx, grp.ID, staff)
	_, ok := errors.Cause(err).(*core.InvalidStateError)
	assert.True(t, ok, "want InvalidStateError, got %T", errors.Cause(err))

	got, err := env.svc.Get(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	assert.Equal(t, group.StatusSignedOff, got.Status)
}

func TestServicePassNextConcurrent(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	lb := testutil.CreateLab(t, env.labRepo, "class1", "Lab 1", 10, 3)
	grp := testutil.CreateGroup(t, env.groupRepo, lb.ID, "Group 1", 1)
	staff := group.Performer{ID: "staff1", Name: "Staff One"}

	// concurrent signoffs on one group must each advance a distinct
	// checkpoint; a lost update would leave one of them Unset.
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.PassNext(ctx, grp.ID, staff)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := env.svc.Get(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	require.Len(t, got.Progress, 3)
	for _, p := range got.Progress {
		assert.Equal(t, group.CheckpointPassed, p.Status, "checkpoint %d", p.Number)
	}
	assert.Equal(t, group.StatusSignedOff, got.Status)

	// exactly one audit entry per advanced checkpoint
	events, err := env.auditSvc.Query(ctx, audit.QueryFilter{GroupID: grp.ID})
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
