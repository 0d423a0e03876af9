package lab_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/labtrack/core/lab"
	inmemdb "github.com/trezcool/labtrack/storage/database/inmem"
	testutil "github.com/trezcool/labtrack/tests"
)

func TestServiceResolveCheckpoints(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewLabRepository(inmemdb.NewDB())
	svc := lab.NewService(repo)

	t.Run("explicit definitions win, sorted by number", func(t *testing.T) {
		lb := testutil.CreateLab(t, repo, "class1", "Lab 1", 10, 4)
		testutil.SetCheckpointDefs(t, repo, lb.ID, map[int]int{3: 5, 1: 2, 2: 3})

		defs, err := svc.ResolveCheckpoints(ctx, lb)
		require.NoError(t, err)
		require.Len(t, defs, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{defs[0].Number, defs[1].Number, defs[2].Number})
		assert.Equal(t, []int{2, 3, 5}, []int{defs[0].Points, defs[1].Points, defs[2].Points})
	})

	t.Run("synthetic definitions from checkpoint count", func(t *testing.T) {
		lb := testutil.CreateLab(t, repo, "class1", "Lab 2", 10, 4)

		defs, err := svc.ResolveCheckpoints(ctx, lb)
		require.NoError(t, err)
		require.Len(t, defs, 4)
		for i, def := range defs {
			assert.Equal(t, i+1, def.Number)
			assert.Equal(t, 1, def.Points)
		}
	})

	t.Run("synthetic definitions fall back to points total", func(t *testing.T) {
		lb := testutil.CreateLab(t, repo, "class1", "Lab 3", 6, 0)

		defs, err := svc.ResolveCheckpoints(ctx, lb)
		require.NoError(t, err)
		assert.Len(t, defs, 6)
	})
}

func TestServiceGet(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewLabRepository(inmemdb.NewDB())
	svc := lab.NewService(repo)

	lb := testutil.CreateLab(t, repo, "class1", "Lab 1", 10, 4)

	got, err := svc.Get(ctx, lb.ID)
	require.NoError(t, err)
	assert.Equal(t, lb.ID, got.ID)

	_, err = svc.Get(ctx, "b5507657-29ba-4a4e-9b3e-45454f33b0b4")
	assert.Equal(t, lab.ErrNotFound, err)
}
