package lifespan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasclimate/atlas/internal/domain"
)

func TestCoastalPenaltyYears(t *testing.T) {
	tests := []struct {
		name string
		slr  float64
		want float64
	}{
		{"below first threshold", 0.3, 0},
		{"moderate rise", 0.7, 5},
		{"at severe threshold", 1.0, 12},
		{"severe rise", 1.1, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoastalPenaltyYears(tt.slr))
		})
	}
}

func TestFloodPenaltyYears(t *testing.T) {
	assert.Equal(t, 0.0, FloodPenaltyYears(1.2))
	assert.Equal(t, 4.0, FloodPenaltyYears(1.7))
	assert.Equal(t, 10.0, FloodPenaltyYears(2.4))
}

func TestIsRescue(t *testing.T) {
	assert.True(t, IsRescue("Sea Wall"))
	assert.True(t, IsRescue("sea_wall reinforcement"))
	assert.True(t, IsRescue("sponge_city"))
	assert.True(t, IsRescue("Sponge City retrofit"))
	assert.False(t, IsRescue("green_roof"))
	assert.False(t, IsRescue(""))
}

func TestApply_SeaWallRescue(t *testing.T) {
	// 30-year asset under 1.1m of sea-level rise with a sea wall: the raw
	// 12-year penalty is cut to 2.4 years.
	adj := Apply(30, CoastalPenaltyYears(1.1), "Sea Wall")

	assert.Equal(t, 12.0, adj.RawPenaltyYears)
	assert.True(t, adj.RescueApplied)
	assert.InDelta(t, 2.4, adj.PenaltyYears, 1e-12)
	assert.InDelta(t, 27.6, adj.AdjustedYears, 1e-12)
}

func TestApply_FloorAtOneYear(t *testing.T) {
	adj := Apply(3, 12, "")
	assert.False(t, adj.RescueApplied)
	assert.Equal(t, 1.0, adj.AdjustedYears)
}

func TestApply_NoRescueExactSubtraction(t *testing.T) {
	adj := Apply(30, 5, "mangrove planting")
	assert.Equal(t, 25.0, adj.AdjustedYears)
	assert.Equal(t, adj.RawPenaltyYears, adj.PenaltyYears)
}

func TestAssess_CoastalWithRescue(t *testing.T) {
	s := domain.Scenario{Year: 2050, SLRProjectionM: 1.1}
	adj := Assess(domain.ProjectCoastal, s, 30, "Sea Wall")

	assert.InDelta(t, 2.4, adj.PenaltyYears, 1e-12)
	// Rescue scales the 30% OPEX penalty by 0.15.
	assert.InDelta(t, 0.30*0.15, adj.OpexPenaltyPct, 1e-12)
}

func TestAssess_UrbanFloodWarming(t *testing.T) {
	s := domain.Scenario{Year: 2050, GlobalWarmingC: 2.2}
	adj := Assess(domain.ProjectUrbanFlood, s, 25, "")

	assert.Equal(t, 10.0, adj.RawPenaltyYears)
	assert.Equal(t, 15.0, adj.AdjustedYears)
	assert.InDelta(t, 0.25, adj.OpexPenaltyPct, 1e-12)
}

func TestAssess_HealthNoPenalty(t *testing.T) {
	s := domain.Scenario{Year: 2050, GlobalWarmingC: 3, SLRProjectionM: 2}
	adj := Assess(domain.ProjectHealth, s, 20, "")
	assert.Equal(t, 0.0, adj.RawPenaltyYears)
	assert.Equal(t, 20.0, adj.AdjustedYears)
	assert.Equal(t, 0.0, adj.OpexPenaltyPct)
}
