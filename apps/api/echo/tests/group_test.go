package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/labtrack/apps/api/echo"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/group"
	testutil "github.com/trezcool/labtrack/tests"
)

func TestGroupAPIRetrieve(t *testing.T) {
	e := setup(t)
	cls := testutil.CreateClass(t, e.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, e.labRepo, cls.ID, "Week 1 Lab", 5, 0)
	testutil.SetCheckpointDefs(t, e.labRepo, lb.ID, map[int]int{1: 2, 2: 3})
	grp := testutil.CreateGroup(t, e.groupRepo, lb.ID, "Group 1", 1,
		testutil.Member("u1", "Ada Lovelace"),
		testutil.Member("u2", "Alan Turing"),
	)

	req, rec := newRequest(http.MethodGet, "/v1/groups/"+grp.ID)
	e.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got group.Group
	unmarshall(t, rec.Body.Bytes(), &got)
	assert.Equal(t, grp.ID, got.ID)
	assert.Equal(t, "Group 1", got.DisplayID)
	assert.Len(t, got.Members, 2)
	// progress is lazily initialized from the lab's checkpoints
	require.Len(t, got.Progress, 2)
	for _, p := range got.Progress {
		assert.Equal(t, group.CheckpointUnset, p.Status)
	}

	req, rec = newRequest(http.MethodGet, "/v1/groups/deadbeef")
	e.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusNotFound, []byte(`{"error": "not found"}`))
}

func TestGroupAPISignoff(t *testing.T) {
	e := setup(t)
	cls := testutil.CreateClass(t, e.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, e.labRepo, cls.ID, "Week 1 Lab", 5, 0)
	testutil.SetCheckpointDefs(t, e.labRepo, lb.ID, map[int]int{1: 2, 2: 3})
	grp := testutil.CreateGroup(t, e.groupRepo, lb.ID, "Group 1", 1,
		testutil.Member("u1", "Ada Lovelace"),
	)
	path := "/v1/groups/" + grp.ID + "/checkpoints"

	t.Run("pass", func(t *testing.T) {
		body := marshallObj(t, SignoffRequest{PerformedBy: "staff1", PerformerName: "Dr. Hopper", Notes: "clean solution"})
		req, rec := newRequest(http.MethodPost, path+"/1/pass", body)
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp SignoffResponse
		unmarshall(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "pass", resp.Event.Action)
		assert.Equal(t, grp.ID, resp.Event.GroupID)
		assert.Equal(t, group.CheckpointPassed, resp.Progress.Status)
		assert.Equal(t, "Dr. Hopper", resp.Progress.SignerName)
		assert.Equal(t, "clean solution", resp.Progress.Notes)
	})

	t.Run("return", func(t *testing.T) {
		body := marshallObj(t, SignoffRequest{PerformedBy: "staff1", PerformerName: "Dr. Hopper", Notes: "off by one"})
		req, rec := newRequest(http.MethodPost, path+"/1/return", body)
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp SignoffResponse
		unmarshall(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, "return", resp.Event.Action)
		assert.Equal(t, group.CheckpointReturned, resp.Progress.Status)
	})

	t.Run("toggle", func(t *testing.T) {
		body := marshallObj(t, ToggleRequest{Completed: true})
		req, rec := newRequest(http.MethodPost, path+"/2/toggle", body)
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var p group.CheckpointProgress
		unmarshall(t, rec.Body.Bytes(), &p)
		assert.Equal(t, 2, p.Number)
		assert.Equal(t, group.CheckpointPassed, p.Status)
	})

	t.Run("passNext picks the returned checkpoint", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path+"/next", []byte(`{}`))
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var p group.CheckpointProgress
		unmarshall(t, rec.Body.Bytes(), &p)
		assert.Equal(t, 1, p.Number)
		assert.Equal(t, group.CheckpointPassed, p.Status)
	})

	t.Run("passNext with everything passed", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path+"/next", []byte(`{}`))
		e.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantData []byte
	}{
		{
			name:     "bad checkpoint number",
			path:     path + "/abc/pass",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"num": "must be a positive integer"}`),
		},
		{
			name:     "unknown checkpoint",
			path:     path + "/99/pass",
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error": "not found"}`),
		},
		{
			name:     "unknown group",
			path:     "/v1/groups/nope/checkpoints/1/pass",
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error": "not found"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, []byte(`{}`))
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, rec, tt.wantCode, tt.wantData)
		})
	}
}

func TestGroupAPIFormation(t *testing.T) {
	e := setup(t)
	cls := testutil.CreateClass(t, e.classRepo, "CS 101", "Fall 2026")
	lb := testutil.CreateLab(t, e.labRepo, cls.ID, "Week 2 Lab", 5, 2)
	names := []string{"Ada", "Alan", "Grace", "Edsger", "Donald", "Barbara", "Tony"}
	for _, name := range names {
		testutil.Enroll(t, e.classRepo, cls.ID, "u"+name, name, "Dev", "", class.RoleStudent, true)
	}
	basePath := "/v1/labs/" + lb.ID + "/groups"

	t.Run("randomize", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, basePath+"/randomize", []byte(`{"seed": 42}`))
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var groups []group.Group
		unmarshall(t, rec.Body.Bytes(), &groups)
		require.Len(t, groups, 3) // 7 students, target size 2..3
		var total int
		for _, g := range groups {
			assert.Equal(t, 1, g.GenerationNumber)
			assert.Equal(t, group.StatusForming, g.Status)
			total += len(g.Members)
		}
		assert.Equal(t, len(names), total)
	})

	t.Run("re-randomize bumps generation", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, basePath+"/randomize", []byte(`{}`))
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var groups []group.Group
		unmarshall(t, rec.Body.Bytes(), &groups)
		require.NotEmpty(t, groups)
		assert.Equal(t, 2, groups[0].GenerationNumber)
	})

	t.Run("randomize unknown lab", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/labs/nope/groups/randomize", []byte(`{}`))
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec, http.StatusNotFound, []byte(`{"error": "not found"}`))
	})

	t.Run("bulk update", func(t *testing.T) {
		body := marshallObj(t, BulkGroupsRequest{Groups: []group.BulkGroup{
			{
				DisplayID: "Team Alpha",
				Members: []group.BulkMember{
					{UserExternalID: "uAda", Name: "Ada Dev"},
					{Name: "Visiting Student"},
				},
			},
		}})
		req, rec := newRequest(http.MethodPut, basePath, body)
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var groups []group.Group
		unmarshall(t, rec.Body.Bytes(), &groups)
		require.Len(t, groups, 1)
		assert.Equal(t, "Team Alpha", groups[0].DisplayID)
		assert.Len(t, groups[0].Members, 2)
	})

	t.Run("bulk update rejects unenrolled member", func(t *testing.T) {
		body := marshallObj(t, BulkGroupsRequest{Groups: []group.BulkGroup{
			{Members: []group.BulkMember{{UserExternalID: "ghost", Name: "Ghost"}}},
		}})
		req, rec := newRequest(http.MethodPut, basePath, body)
		e.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("bulk update requires groups", func(t *testing.T) {
		req, rec := newRequest(http.MethodPut, basePath, []byte(`{}`))
		e.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec, http.StatusBadRequest, []byte(`{"groups": "this field is required"}`))
	})

	t.Run("query groups by lab", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, basePath)
		e.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var groups []group.Group
		unmarshall(t, rec.Body.Bytes(), &groups)
		assert.Len(t, groups, 1)
	})
}
