package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/labtrack/apps/api/echo"
	"github.com/trezcool/labtrack/core/queue"
	testutil "github.com/trezcool/labtrack/tests"
)

func TestQueueAPI(t *testing.T) {
	e := setup(t)
	cls := testutil.CreateClass(t, e.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, e.labRepo, cls.ID, "Week 1 Lab", 5, 2)
	g1 := testutil.CreateGroup(t, e.groupRepo, lb.ID, "Group 1", 1, testutil.Member("u1", "Ada Lovelace"))
	g2 := testutil.CreateGroup(t, e.groupRepo, lb.ID, "Group 2", 1, testutil.Member("u2", "Alan Turing"))
	basePath := "/v1/labs/" + lb.ID + "/queue"

	raise := func(t *testing.T, groupID, raisedBy, desc string) (queue.Item, *http.Response) {
		t.Helper()
		body := marshallObj(t, queue.NewItem{GroupID: groupID, RaisedBy: raisedBy, Description: desc})
		req, rec := newRequest(http.MethodPost, basePath, body)
		e.server.ServeHTTP(rec, req)
		var it queue.Item
		if rec.Code == http.StatusCreated {
			unmarshall(t, rec.Body.Bytes(), &it)
		}
		return it, rec.Result()
	}

	var it1, it2 queue.Item

	t.Run("raise", func(t *testing.T) {
		var resp *http.Response
		it1, resp = raise(t, g1.ID, "u1", "stuck on part 2")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, lb.ID, it1.LabID)
		assert.Equal(t, 1, it1.Position)
		assert.Equal(t, queue.StatusWaiting, it1.Status)
		assert.Equal(t, queue.PriorityNormal, it1.Priority)
		assert.False(t, it1.RaisedAt.IsZero())

		it2, resp = raise(t, g2.ID, "u2", "")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, 2, it2.Position)
	})

	t.Run("raise twice is a conflict", func(t *testing.T) {
		_, resp := raise(t, g1.ID, "u1", "still stuck")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("raise requires group and raiser", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, basePath, []byte(`{}`))
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec, http.StatusBadRequest,
			[]byte(`{"group_id": "this field is required", "raised_by": "this field is required"}`))
	})

	t.Run("query", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, basePath)
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp QueueListResponse
		unmarshall(t, rec.Body.Bytes(), &resp)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, queue.Stats{Waiting: 2, Claimed: 0, Active: 2}, resp.Stats)
	})

	t.Run("claim requires a claimer", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/queue/"+it1.ID+"/claim", []byte(`{}`))
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec, http.StatusBadRequest, []byte(`{"claimed_by": "this field is required"}`))
	})

	t.Run("claim and resolve", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/queue/"+it1.ID+"/claim", []byte(`{"claimed_by": "staff1"}`))
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var it queue.Item
		unmarshall(t, rec.Body.Bytes(), &it)
		assert.Equal(t, queue.StatusClaimed, it.Status)
		assert.Equal(t, "staff1", it.ClaimedBy)
		assert.False(t, it.ClaimedAt.IsZero())

		req, rec = newRequest(http.MethodPost, "/v1/queue/"+it1.ID+"/resolve")
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshall(t, rec.Body.Bytes(), &it)
		assert.Equal(t, queue.StatusResolved, it.Status)
		assert.False(t, it.ResolvedAt.IsZero())

		// resolving a closed item is a conflict
		req, rec = newRequest(http.MethodPost, "/v1/queue/"+it1.ID+"/resolve")
		e.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("cancel", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/queue/"+it2.ID+"/cancel")
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var it queue.Item
		unmarshall(t, rec.Body.Bytes(), &it)
		assert.Equal(t, queue.StatusCancelled, it.Status)
	})

	t.Run("urgent", func(t *testing.T) {
		it3, resp := raise(t, g1.ID, "u1", "blocked again")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, 3, it3.Position) // positions are never reused

		req, rec := newRequest(http.MethodPost, "/v1/queue/"+it3.ID+"/urgent")
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var it queue.Item
		unmarshall(t, rec.Body.Bytes(), &it)
		assert.Equal(t, queue.PriorityUrgent, it.Priority)
	})

	t.Run("unknown item", func(t *testing.T) {
		for _, action := range []string{"resolve", "cancel", "urgent"} {
			req, rec := newRequest(http.MethodPost, "/v1/queue/nope/"+action)
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, rec, http.StatusNotFound, []byte(`{"error": "not found"}`))
		}
	})

	t.Run("clear closed", func(t *testing.T) {
		req, rec := newRequest(http.MethodDelete, basePath+"/closed")
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec, http.StatusOK, []byte(`{"count": 2}`))

		req, rec = newRequest(http.MethodGet, basePath)
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp QueueListResponse
		unmarshall(t, rec.Body.Bytes(), &resp)
		assert.Len(t, resp.Items, 1)
	})
}
