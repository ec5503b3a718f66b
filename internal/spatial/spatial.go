// Package spatial parses GeoJSON asset footprints and scales monetary risk
// by fractional hazard exposure. Areas use a spherical shoelace integration
// with a cos(latitude) longitude correction, which is accurate to well under
// a percent for parcel-sized polygons.
package spatial

import (
	"encoding/json"
	"math"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Kilometres per degree of latitude on the mean Earth sphere (R = 6371 km).
const kmPerDegree = math.Pi / 180 * 6371.0

// geometry is the subset of GeoJSON we accept.
type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type feature struct {
	Type     string    `json:"type"`
	Geometry *geometry `json:"geometry"`
}

// Footprint is a validated polygon footprint. Rings hold the outer rings of
// every polygon; holes are ignored for exposure purposes.
type Footprint struct {
	Rings [][]domain.Point
}

// Parse validates a GeoJSON Feature, Polygon, or MultiPolygon document and
// extracts the outer rings. Malformed or unsupported geometry returns an
// INVALID_INPUT error.
func Parse(raw json.RawMessage) (*Footprint, error) {
	if len(raw) == 0 {
		return nil, domain.Invalid("polygon geometry is empty")
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, domain.Invalidf("polygon is not valid JSON: %v", err)
	}

	geom := geometry{}
	switch probe.Type {
	case "Feature":
		var f feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, domain.Invalidf("malformed GeoJSON feature: %v", err)
		}
		if f.Geometry == nil {
			return nil, domain.Invalid("feature has no geometry")
		}
		geom = *f.Geometry
	case "Polygon", "MultiPolygon":
		if err := json.Unmarshal(raw, &geom); err != nil {
			return nil, domain.Invalidf("malformed GeoJSON geometry: %v", err)
		}
	default:
		return nil, domain.Invalidf("unsupported GeoJSON type %q (want Feature, Polygon, or MultiPolygon)", probe.Type)
	}

	switch geom.Type {
	case "Polygon":
		rings, err := parsePolygon(geom.Coordinates)
		if err != nil {
			return nil, err
		}
		return &Footprint{Rings: rings[:1]}, nil
	case "MultiPolygon":
		var polys [][][][2]float64
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return nil, domain.Invalidf("malformed MultiPolygon coordinates: %v", err)
		}
		if len(polys) == 0 {
			return nil, domain.Invalid("MultiPolygon has no polygons")
		}
		fp := &Footprint{}
		for _, coords := range polys {
			data, _ := json.Marshal(coords)
			rings, err := parsePolygon(data)
			if err != nil {
				return nil, err
			}
			fp.Rings = append(fp.Rings, rings[0])
		}
		return fp, nil
	default:
		return nil, domain.Invalidf("unsupported geometry type %q", geom.Type)
	}
}

func parsePolygon(coords json.RawMessage) ([][]domain.Point, error) {
	var rings [][][2]float64
	if err := json.Unmarshal(coords, &rings); err != nil {
		return nil, domain.Invalidf("malformed Polygon coordinates: %v", err)
	}
	if len(rings) == 0 {
		return nil, domain.Invalid("polygon has no rings")
	}

	out := make([][]domain.Point, 0, len(rings))
	for _, ring := range rings {
		// GeoJSON closes rings explicitly; drop the duplicate vertex.
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			return nil, domain.Invalid("polygon ring needs at least 3 distinct vertices")
		}
		pts := make([]domain.Point, len(ring))
		for i, c := range ring {
			lon, lat := c[0], c[1]
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return nil, domain.Invalidf("vertex out of range: lat=%v lon=%v", lat, lon)
			}
			pts[i] = domain.Point{Lat: lat, Lon: lon}
		}
		out = append(out, pts)
	}
	return out, nil
}

// AreaKM2 sums the outer-ring areas via the shoelace formula, with longitude
// degrees scaled by cos of the ring's mean latitude.
func (f *Footprint) AreaKM2() float64 {
	total := 0.0
	for _, ring := range f.Rings {
		total += ringAreaKM2(ring)
	}
	return total
}

func ringAreaKM2(ring []domain.Point) float64 {
	meanLat := 0.0
	for _, p := range ring {
		meanLat += p.Lat
	}
	meanLat /= float64(len(ring))
	lonScale := math.Cos(meanLat * math.Pi / 180)

	sum := 0.0
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := ring[i].Lon*lonScale, ring[i].Lat
		xj, yj := ring[j].Lon*lonScale, ring[j].Lat
		sum += xi*yj - xj*yi
	}
	return math.Abs(sum) / 2 * kmPerDegree * kmPerDegree
}

// Centroid is the area-weighted centroid of the outer rings, falling back to
// the coordinate mean for degenerate rings.
func (f *Footprint) Centroid() domain.Point {
	totalArea := 0.0
	var latSum, lonSum float64
	for _, ring := range f.Rings {
		a := ringAreaKM2(ring)
		c := ringCentroid(ring)
		latSum += c.Lat * a
		lonSum += c.Lon * a
		totalArea += a
	}
	if totalArea == 0 {
		return coordinateMean(f.Rings)
	}
	return domain.Point{Lat: latSum / totalArea, Lon: lonSum / totalArea}
}

func ringCentroid(ring []domain.Point) domain.Point {
	// Planar polygon centroid in degree space; the lonScale cancels for
	// the latitude coordinate and divides out for longitude.
	n := len(ring)
	var cx, cy, a float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := ring[i].Lon*ring[j].Lat - ring[j].Lon*ring[i].Lat
		cx += (ring[i].Lon + ring[j].Lon) * cross
		cy += (ring[i].Lat + ring[j].Lat) * cross
		a += cross
	}
	if a == 0 {
		return coordinateMean([][]domain.Point{ring})
	}
	return domain.Point{Lat: cy / (3 * a), Lon: cx / (3 * a)}
}

func coordinateMean(rings [][]domain.Point) domain.Point {
	var lat, lon float64
	n := 0
	for _, ring := range rings {
		for _, p := range ring {
			lat += p.Lat
			lon += p.Lon
			n++
		}
	}
	if n == 0 {
		return domain.Point{}
	}
	return domain.Point{Lat: lat / float64(n), Lon: lon / float64(n)}
}

// Exposure bounds for fractional hazard exposure.
const (
	MinExposure = 0.05
	MaxExposure = 0.95
)

// FractionalExposure estimates the share of the footprint inside the hazard
// layer. It is a deterministic function of the centroid, the area, the
// project type, and the scenario intensity: larger footprints and stronger
// scenarios expose more; the centroid hash desynchronizes neighbouring
// parcels. Always within [MinExposure, MaxExposure].
func FractionalExposure(centroid domain.Point, areaKM2 float64, kind domain.ProjectKind, sc domain.Scenario) float64 {
	base := 0.30
	switch kind {
	case domain.ProjectCoastal:
		base = 0.45 + 0.25*math.Min(sc.SLRProjectionM, 2.0)/2.0
	case domain.ProjectUrbanFlood, domain.ProjectFlashFlood:
		base = 0.35 + 0.30*math.Min(sc.RainIntensityPct, 1.0)
	case domain.ProjectAgriculture:
		base = 0.50 + 0.10*math.Min(sc.TempDeltaC, 4.0)/4.0
	case domain.ProjectHealth:
		base = 0.40 + 0.15*math.Min(sc.TempDeltaC, 4.0)/4.0
	}

	// Area term saturates: a 100 km2 footprint adds the full increment.
	areaTerm := 0.15 * math.Min(areaKM2, 100.0) / 100.0

	// Deterministic jitter in [-0.05, 0.05] from the centroid grid cell.
	cellLat := math.Round(centroid.Lat * 100)
	cellLon := math.Round(centroid.Lon * 100)
	jitter := math.Mod(math.Abs(cellLat*31+cellLon*17), 100)/100*0.10 - 0.05

	return clampExposure(base + areaTerm + jitter)
}

func clampExposure(v float64) float64 {
	if v < MinExposure {
		return MinExposure
	}
	if v > MaxExposure {
		return MaxExposure
	}
	return v
}

// Scale produces the spatial risk record: value at risk is asset value
// scaled by exposure and the damage fraction, never exceeding asset value.
func Scale(fp *Footprint, kind domain.ProjectKind, sc domain.Scenario, assetValueUSD, damageFraction float64) domain.SpatialResult {
	area := fp.AreaKM2()
	centroid := fp.Centroid()
	exposure := FractionalExposure(centroid, area, kind, sc)

	exposed := assetValueUSD * exposure
	atRisk := exposed * damageFraction
	if atRisk > assetValueUSD {
		atRisk = assetValueUSD
	}

	return domain.SpatialResult{
		AreaKM2:           area,
		Centroid:          centroid,
		Exposure:          exposure,
		ValueAtRiskUSD:    atRisk,
		ProtectedValueUSD: assetValueUSD - exposed,
	}
}
