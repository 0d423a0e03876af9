package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/group"
	"github.com/trezcool/labtrack/core/lab"
)

// NopLogger discards everything. Tests assert on behavior, not log output.
type NopLogger struct{}

var _ core.Logger = (*NopLogger)(nil)

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

func CreateClass(t *testing.T, repo class.Repository, name, term string) class.Class {
	t.Helper()
	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:      name,
		Term:      term,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func Enroll(
	t *testing.T,
	repo class.Repository,
	classID, externalID, firstName, lastName, email, role string,
	active bool,
) class.Enrollment {
	t.Helper()
	enr, err := repo.CreateEnrollment(context.Background(), class.Enrollment{
		ClassID:        classID,
		UserExternalID: externalID,
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		Role:           role,
		Active:         active,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateLab(
	t *testing.T,
	repo lab.Repository,
	classID, title string,
	pointsTotal, checkpointCount int,
) lab.Lab {
	t.Helper()
	now := time.Now().UTC()
	lb, err := repo.CreateLab(context.Background(), lab.Lab{
		ClassID:         classID,
		Title:           title,
		PointsTotal:     pointsTotal,
		CheckpointCount: checkpointCount,
		MinGroupSize:    lab.DefaultMinGroupSize,
		MaxGroupSize:    lab.DefaultMaxGroupSize,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateLab() failed: %v", err)
	}
	return lb
}

// SetCheckpointDefs replaces a lab's checkpoint definitions; points are
// keyed by checkpoint number.
func SetCheckpointDefs(t *testing.T, repo lab.Repository, labID string, points map[int]int) []lab.CheckpointDefinition {
	t.Helper()
	defs := make([]lab.CheckpointDefinition, 0, len(points))
	for num, pts := range points {
		defs = append(defs, lab.CheckpointDefinition{Number: num, Points: pts})
	}
	stored, err := repo.SetCheckpointDefs(context.Background(), labID, defs)
	if err != nil {
		t.Fatalf("SetCheckpointDefs() failed: %v", err)
	}
	return stored
}

func CreateGroup(
	t *testing.T,
	repo group.Repository,
	labID, displayID string,
	generation int,
	members ...group.GroupMember,
) group.Group {
	t.Helper()
	now := time.Now().UTC()
	groups, err := repo.CreateGroups(context.Background(), []group.Group{{
		DisplayID:        displayID,
		LabID:            labID,
		GenerationNumber: generation,
		Status:           group.StatusForming,
		Members:          members,
		CreatedAt:        now,
		UpdatedAt:        now,
	}})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return groups[0]
}

func Member(externalID, name string) group.GroupMember {
	return group.GroupMember{
		UserExternalID: externalID,
		Name:           name,
		JoinedAt:       time.Now().UTC(),
	}
}
