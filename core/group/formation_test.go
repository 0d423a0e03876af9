package group_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/group"
	testutil "github.com/trezcool/labtrack/tests"
)

func enrollStudents(t *testing.T, env *groupEnv, classID string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		testutil.Enroll(t, env.classRepo, classID, fmt.Sprintf("u%d", i), fmt.Sprintf("First%d", i), fmt.Sprintf("Last%d", i), "", class.RoleStudent, true)
	}
}

func TestServiceRandomize(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	cls := testutil.CreateClass(t, env.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, env.labRepo, cls.ID, "Lab 1", 10, 3)
	enrollStudents(t, env, cls.ID, 7)
	// inactive and staff enrollments never land in groups
	testutil.Enroll(t, env.classRepo, cls.ID, "u8", "Dropped", "Student", "", class.RoleStudent, false)
	testutil.Enroll(t, env.classRepo, cls.ID, "u9", "Lab", "Staff", "", class.RoleStaff, true)

	groups, err := env.svc.Randomize(ctx, lb.ID, 42)
	require.NoError(t, err)

	// 7 students, min 2, max 3: sizes 3, 2, 2
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Members, 3)
	assert.Len(t, groups[1].Members, 2)
	assert.Len(t, groups[2].Members, 2)

	seen := map[string]bool{}
	for i, grp := range groups {
		assert.Equal(t, fmt.Sprintf("Group %d", i+1), grp.DisplayID)
		assert.Equal(t, 1, grp.GenerationNumber)
		assert.Equal(t, group.StatusForming, grp.Status)
		for _, m := range grp.Members {
			assert.False(t, seen[m.UserExternalID], "student %s assigned twice", m.UserExternalID)
			seen[m.UserExternalID] = true
		}
	}
	assert.Len(t, seen, 7)
	assert.False(t, seen["u8"])
	assert.False(t, seen["u9"])

	// re-randomizing replaces everything and bumps the generation
	groups, err = env.svc.Randomize(ctx, lb.ID, 43)
	require.NoError(t, err)
	assert.Equal(t, 2, groups[0].GenerationNumber)
	all, err := env.svc.QueryByLab(ctx, lb.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestServiceRandomizeDeterministicSeed(t *testing.T) {
	ctx := context.Background()

	memberNames := func(t *testing.T, seed int64) []string {
		env := newGroupEnv()
		cls := testutil.CreateClass(t, env.classRepo, "CS 101", "Fall 2026")
		lb := testutil.CreateLab(t, env.labRepo, cls.ID, "Lab 1", 10, 3)
		enrollStudents(t, env, cls.ID, 9)

		groups, err := env.svc.Randomize(ctx, lb.ID, seed)
		require.NoError(t, err)
		var names []string
		for _, grp := range groups {
			for _, m := range grp.Members {
				names = append(names, m.UserExternalID)
			}
		}
		return names
	}

	assert.Equal(t, memberNames(t, 42), memberNames(t, 42))
}

func TestServiceRandomizeNoStudents(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	cls := testutil.CreateClass(t, env.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, env.labRepo, cls.ID, "Lab 1", 10, 3)

	_, err := env.svc.Randomize(ctx, lb.ID)
	require.Error(t, err)
	_, ok := errors.Cause(err).(*core.InvalidStateError)
	assert.True(t, ok, "want InvalidStateError, got %T", errors.Cause(err))
}

func TestServiceBulkUpdate(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	cls := testutil.CreateClass(t, env.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, env.labRepo, cls.ID, "Lab 1", 10, 3)
	enrollStudents(t, env, cls.ID, 4)

	_, err := env.svc.Randomize(ctx, lb.ID, 42)
	require.NoError(t, err)

	groups, err := env.svc.BulkUpdate(ctx, lb.ID, []group.BulkGroup{
		{DisplayID: "Team Alpha", Members: []group.BulkMember{
			{UserExternalID: "u1", Name: "First1 Last1"},
			{Name: "Walk-in Guest"}, // no external id: allowed
		}},
		{Status: group.StatusInProgress, Members: []group.BulkMember{
			{UserExternalID: "u2", Name: "First2 Last2"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Team Alpha", groups[0].DisplayID)
	assert.Equal(t, group.StatusForming, groups[0].Status) // default
	assert.Equal(t, "Group 2", groups[1].DisplayID)        // default
	assert.Equal(t, group.StatusInProgress, groups[1].Status)
	assert.Equal(t, 1, groups[0].GenerationNumber) // kept, not bumped

	// full replace
	all, err := env.svc.QueryByLab(ctx, lb.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestServiceBulkUpdateRejectsUnenrolled(t *testing.T) {
	ctx := context.Background()
	env := newGroupEnv()

	cls := testutil.CreateClass(t, env.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, env.labRepo, cls.ID, "Lab 1", 10, 3)
	enrollStudents(t, env, cls.ID, 2)

	_, err := env.svc.BulkUpdate(ctx, lb.ID, []group.BulkGroup{
		{Members: []group.BulkMember{{UserExternalID: "ghost", Name: "Ghost"}}},
	})
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want ValidationError, got %T", errors.Cause(err))
	require.NotEmpty(t, vErr.Fields)
	assert.Contains(t, vErr.Fields[0].Error, "ghost")
}
