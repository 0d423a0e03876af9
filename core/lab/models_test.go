package lab

import "testing"

func TestCheckpointDefinitionEffectivePoints(t *testing.T) {
	tests := []struct {
		name   string
		points int
		want   int
	}{
		{name: "unset", points: 0, want: 1},
		{name: "negative", points: -3, want: 1},
		{name: "set", points: 5, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (CheckpointDefinition{Points: tt.points}).EffectivePoints(); got != tt.want {
				t.Errorf("EffectivePoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLabGroupSizeBounds(t *testing.T) {
	tests := []struct {
		name             string
		min, max         int
		wantMin, wantMax int
	}{
		{name: "defaults", wantMin: DefaultMinGroupSize, wantMax: DefaultMaxGroupSize},
		{name: "explicit", min: 3, max: 5, wantMin: 3, wantMax: 5},
		{name: "min only", min: 4, wantMin: 4, wantMax: 4},
		{name: "max below min", min: 5, max: 2, wantMin: 5, wantMax: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := (Lab{MinGroupSize: tt.min, MaxGroupSize: tt.max}).GroupSizeBounds()
			if min != tt.wantMin || max != tt.wantMax {
				t.Errorf("GroupSizeBounds() = (%d, %d), want (%d, %d)", min, max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestPointsPossible(t *testing.T) {
	tests := []struct {
		name string
		lb   Lab
		defs []CheckpointDefinition
		want float64
	}{
		{name: "sums effective points", defs: []CheckpointDefinition{{Points: 2}, {Points: 3}, {Points: 0}}, want: 6},
		{name: "falls back to points total", lb: Lab{PointsTotal: 10}, want: 10},
		{name: "never zero", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointsPossible(tt.lb, tt.defs); got != tt.want {
				t.Errorf("PointsPossible() = %v, want %v", got, tt.want)
			}
		})
	}
}
