package lab

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("lab not found")

type (
	Repository interface {
		CreateLab(ctx context.Context, lb Lab) (Lab, error)
		GetLab(ctx context.Context, id string) (Lab, error)
		QueryLabsByClass(ctx context.Context, classID string) ([]Lab, error)
		UpdateLab(ctx context.Context, lb Lab) (Lab, error)
		QueryCheckpointDefs(ctx context.Context, labID string) ([]CheckpointDefinition, error)
		SetCheckpointDefs(ctx context.Context, labID string, defs []CheckpointDefinition) ([]CheckpointDefinition, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nl NewLab) (Lab, error) {
	now := time.Now().UTC()
	lb := Lab{
		ClassID:         nl.ClassID,
		Title:           nl.Title,
		Description:     nl.Description,
		PointsTotal:     nl.PointsTotal,
		CheckpointCount: nl.CheckpointCount,
		MinGroupSize:    nl.MinGroupSize,
		MaxGroupSize:    nl.MaxGroupSize,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return svc.repo.CreateLab(ctx, lb)
}

func (svc *Service) Get(ctx context.Context, id string) (Lab, error) {
	return svc.repo.GetLab(ctx, id)
}

func (svc *Service) QueryByClass(ctx context.Context, classID string) ([]Lab, error) {
	return svc.repo.QueryLabsByClass(ctx, classID)
}

func (svc *Service) CheckpointDefs(ctx context.Context, labID string) ([]CheckpointDefinition, error) {
	return svc.repo.QueryCheckpointDefs(ctx, labID)
}

func (svc *Service) SetCheckpointDefs(ctx context.Context, labID string, defs []CheckpointDefinition) ([]CheckpointDefinition, error) {
	if _, err := svc.repo.GetLab(ctx, labID); err != nil {
		return nil, err
	}
	return svc.repo.SetCheckpointDefs(ctx, labID, defs)
}

// ResolveCheckpoints returns the lab's effective checkpoint definitions:
// the explicit ones when present (sorted by number), else one synthetic
// 1-point definition per checkpoint number 1..N, N being the lab's
// checkpoint count or, failing that, its points total.
func (svc *Service) ResolveCheckpoints(ctx context.Context, lb Lab) ([]CheckpointDefinition, error) {
	defs, err := svc.repo.QueryCheckpointDefs(ctx, lb.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying checkpoint definitions")
	}
	if len(defs) > 0 {
		sort.Slice(defs, func(i, j int) bool { return defs[i].Number < defs[j].Number })
		return defs, nil
	}

	count := lb.CheckpointCount
	if count <= 0 {
		count = lb.PointsTotal
	}
	defs = make([]CheckpointDefinition, 0, count)
	for n := 1; n <= count; n++ {
		defs = append(defs, CheckpointDefinition{LabID: lb.ID, Number: n, Points: 1})
	}
	return defs, nil
}

// PointsPossible sums the effective points of `defs`, falling back to the
// lab's points total, then 1; it never returns 0.
func PointsPossible(lb Lab, defs []CheckpointDefinition) float64 {
	var sum int
	for _, d := range defs {
		sum += d.EffectivePoints()
	}
	if sum == 0 {
		sum = lb.PointsTotal
	}
	if sum == 0 {
		sum = 1
	}
	return float64(sum)
}
