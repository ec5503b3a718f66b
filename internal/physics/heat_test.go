package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlasclimate/atlas/internal/domain"
)

func TestWBGT(t *testing.T) {
	assert.InDelta(t, 0.7*30+0.1*65, WBGT(30, 65), 1e-12)
}

func TestProductivityLoss(t *testing.T) {
	tests := []struct {
		name string
		wbgt float64
		want float64
	}{
		{"cool", 20, 0},
		{"at threshold", 26, 0},
		{"midway", 29, 0.25},
		{"at cap", 32, 0.50},
		{"beyond cap", 40, 0.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ProductivityLoss(tt.wbgt), 1e-12)
		})
	}
}

func TestHeatStressCategory(t *testing.T) {
	assert.Equal(t, domain.StressLow, HeatStressCategory(24))
	assert.Equal(t, domain.StressModerate, HeatStressCategory(27))
	assert.Equal(t, domain.StressHigh, HeatStressCategory(29))
	assert.Equal(t, domain.StressVeryHigh, HeatStressCategory(31))
	assert.Equal(t, domain.StressExtreme, HeatStressCategory(33))
}

func TestHeat_HumidityIsFraction(t *testing.T) {
	res := Heat(34, 0.80)
	assert.InDelta(t, 0.7*34+0.1*80, res.WBGT, 1e-12)
	assert.Greater(t, res.ProductivityLossPct, 0.0)
	assert.Equal(t, res.ProductivityLossPct, res.DamagePct)
}

func TestMalariaSuitability(t *testing.T) {
	tests := []struct {
		name   string
		tempC  float64
		rainMM float64
		want   float64
	}{
		{"both conditions", 26, 1200, 100},
		{"too cold but wet", 10, 1200, 50},
		{"warm but arid", 26, 40, 50},
		{"too hot and dry", 40, 40, 0},
		{"window edges inclusive", 16, 81, 100},
		{"upper edge inclusive", 34, 81, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MalariaSuitability(tt.tempC, tt.rainMM))
		})
	}
}
