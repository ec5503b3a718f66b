package physics

import (
	"hash/fnv"
	"math"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Flash-flood footprint constants. The baseline flooded area is seeded from
// the location so repeated runs at the same coordinate agree.
const (
	baselineAreaMinKM2 = 50.0
	baselineAreaMaxKM2 = 150.0
	areaGrowthPerPct   = 2.0 // ~2% footprint growth per 1% intensity increase
	twiBase            = 12.0
)

// TWIThreshold returns the dynamic topographic-wetness-index threshold for
// a rain-intensity increase given as a fraction (0.20 = +20%). Higher
// intensity lowers the TWI needed for a cell to flood.
func TWIThreshold(intensityPct float64) float64 {
	return twiBase * (1 - 0.07*intensityPct)
}

// BaselineFloodArea derives the location-seeded baseline urban flood
// footprint in [50, 150] km². Coordinates are rounded to 4 decimals so that
// float jitter does not move the seed.
func BaselineFloodArea(lat, lon float64) float64 {
	h := fnv.New64a()
	var buf [16]byte
	writeRounded(h, &buf, lat)
	writeRounded(h, &buf, lon)
	u := h.Sum64()
	f := float64(u%10000) / 10000.0
	return baselineAreaMinKM2 + f*(baselineAreaMaxKM2-baselineAreaMinKM2)
}

func writeRounded(h interface{ Write([]byte) (int, error) }, buf *[16]byte, v float64) {
	r := math.Round(v*1e4) / 1e4
	bits := math.Float64bits(r)
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	_, _ = h.Write(buf[:8])
}

// FlashFlood computes the flooded footprint under a rain-intensity increase
// (fraction) at a location, plus the damage implied by the share of a
// reference 500 km² urban fabric under water.
func FlashFlood(lat, lon, intensityPct float64) domain.PhysicsResult {
	base := BaselineFloodArea(lat, lon)
	area := base * (1 + areaGrowthPerPct*intensityPct)

	damage := area / 500.0
	if damage > damageCap {
		damage = damageCap
	}
	return domain.PhysicsResult{
		FloodAreaKM2: area,
		TWIThreshold: TWIThreshold(intensityPct),
		DamagePct:    damage,
		Stress:       stressFromDamage(damage),
	}
}
