package group

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/labtrack/core"
)

// Randomize re-forms all of a lab's groups from the class's active student
// population, replacing any existing groups and bumping the lab's generation
// number. The shuffle is non-deterministic unless an explicit seed is given.
func (svc *Service) Randomize(ctx context.Context, labID string, seed ...int64) ([]Group, error) {
	lb, err := svc.labs.Get(ctx, labID)
	if err != nil {
		return nil, errors.Wrap(err, "getting lab")
	}

	students, err := svc.classes.ActiveStudents(ctx, lb.ClassID)
	if err != nil {
		return nil, errors.Wrap(err, "querying active students")
	}
	if len(students) == 0 {
		return nil, core.NewInvalidStateError("no active students enrolled in this class")
	}

	maxGen, err := svc.repo.MaxGenerationNumber(ctx, labID)
	if err != nil {
		return nil, errors.Wrap(err, "querying generation number")
	}
	generation := maxGen + 1

	if _, err = svc.repo.DeleteGroupsByLab(ctx, labID); err != nil {
		return nil, errors.Wrap(err, "deleting existing groups")
	}

	src := time.Now().UnixNano()
	if len(seed) > 0 {
		src = seed[0]
	}
	rnd := rand.New(rand.NewSource(src))
	rnd.Shuffle(len(students), func(i, j int) {
		students[i], students[j] = students[j], students[i]
	})

	minSize, maxSize := lb.GroupSizeBounds()
	sizes := distributeSizes(len(students), calculateOptimalGroupCount(len(students), minSize, maxSize))

	now := time.Now().UTC()
	groups := make([]Group, 0, len(sizes))
	offset := 0
	for i, size := range sizes {
		members := make([]GroupMember, 0, size)
		for _, enr := range students[offset : offset+size] {
			members = append(members, GroupMember{
				UserExternalID: enr.UserExternalID,
				Name:           enr.DisplayName(),
				Email:          enr.Email,
				JoinedAt:       now,
			})
		}
		offset += size

		groups = append(groups, Group{
			DisplayID:        fmt.Sprintf("Group %d", i+1),
			LabID:            labID,
			GenerationNumber: generation,
			Status:           StatusForming,
			Members:          members,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	groups, err = svc.repo.CreateGroups(ctx, groups)
	if err != nil {
		return nil, errors.Wrap(err, "creating groups")
	}

	svc.events.Publish(core.Event{Type: core.EventGroupsRandomized, LabID: labID, At: now, Data: generation})
	return groups, nil
}

// BulkUpdate replaces all of a lab's groups with the given set. Input rows
// are assumed structurally validated (BulkGroup.Validate); every member
// carrying an external id must belong to the class's active enrollment.
func (svc *Service) BulkUpdate(ctx context.Context, labID string, input []BulkGroup) ([]Group, error) {
	lb, err := svc.labs.Get(ctx, labID)
	if err != nil {
		return nil, errors.Wrap(err, "getting lab")
	}

	students, err := svc.classes.ActiveStudents(ctx, lb.ClassID)
	if err != nil {
		return nil, errors.Wrap(err, "querying active students")
	}
	enrolled := make(map[string]bool, len(students))
	for _, enr := range students {
		enrolled[enr.UserExternalID] = true
	}

	for i := range input {
		for _, m := range input[i].Members {
			if m.UserExternalID != "" && !enrolled[m.UserExternalID] {
				return nil, core.NewValidationError(
					errors.Errorf("user %q is not enrolled in this class", m.UserExternalID),
					core.FieldError{Field: "members", Error: fmt.Sprintf("user %q is not enrolled in this class", m.UserExternalID)},
				)
			}
		}
	}

	generation, err := svc.repo.MaxGenerationNumber(ctx, labID)
	if err != nil {
		return nil, errors.Wrap(err, "querying generation number")
	}

	if _, err = svc.repo.DeleteGroupsByLab(ctx, labID); err != nil {
		return nil, errors.Wrap(err, "deleting existing groups")
	}

	now := time.Now().UTC()
	groups := make([]Group, 0, len(input))
	for i, bg := range input {
		status := bg.Status
		if status == "" {
			status = StatusForming
		}
		displayID := bg.DisplayID
		if displayID == "" {
			displayID = fmt.Sprintf("Group %d", i+1)
		}

		members := make([]GroupMember, 0, len(bg.Members))
		for _, m := range bg.Members {
			members = append(members, GroupMember{
				UserExternalID: m.UserExternalID,
				Name:           m.Name,
				Email:          m.Email,
				JoinedAt:       now,
				Present:        m.Present,
			})
		}

		groups = append(groups, Group{
			DisplayID:        displayID,
			LabID:            labID,
			GenerationNumber: generation,
			Status:           status,
			Members:          members,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	groups, err = svc.repo.CreateGroups(ctx, groups)
	if err != nil {
		return nil, errors.Wrap(err, "creating groups")
	}

	svc.events.Publish(core.Event{Type: core.EventGroupsReplaced, LabID: labID, At: now})
	return groups, nil
}

// calculateOptimalGroupCount starts from ceil(total/max) and decrements
// while the smallest resulting group would fall under min, flooring at 1.
func calculateOptimalGroupCount(total, min, max int) int {
	if total <= 0 {
		return 1
	}
	numGroups := (total + max - 1) / max
	for numGroups > 1 && total/numGroups < min {
		numGroups--
	}
	if numGroups < 1 {
		numGroups = 1
	}
	return numGroups
}

// distributeSizes splits total into numGroups block sizes: the first
// total%numGroups groups get one extra member.
func distributeSizes(total, numGroups int) []int {
	base, remainder := total/numGroups, total%numGroups
	sizes := make([]int, numGroups)
	for i := range sizes {
		sizes[i] = base
		if i < remainder {
			sizes[i]++
		}
	}
	return sizes
}
