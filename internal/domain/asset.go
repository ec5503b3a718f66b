// Package domain holds the core value types shared by the simulation and
// rating engine. Everything here is a plain immutable value: assets are
// built once from a request and never mutated during a run.
package domain

import "encoding/json"

// ProjectKind selects the physics kernel an asset is dispatched to.
type ProjectKind string

const (
	ProjectAgriculture ProjectKind = "agriculture"
	ProjectCoastal     ProjectKind = "coastal"
	ProjectUrbanFlood  ProjectKind = "flood"
	ProjectFlashFlood  ProjectKind = "flash_flood"
	ProjectHealth      ProjectKind = "health"
)

// Valid reports whether the kind is one of the dispatchable project types.
func (k ProjectKind) Valid() bool {
	switch k {
	case ProjectAgriculture, ProjectCoastal, ProjectUrbanFlood, ProjectFlashFlood, ProjectHealth:
		return true
	}
	return false
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FinancialOverrides replaces the per-project financial defaults when set.
// All monetary values are USD; DiscountRate is a fraction (0.10, not 10).
type FinancialOverrides struct {
	CapexUSD      *float64 `json:"capex_usd,omitempty"`
	OpexUSD       *float64 `json:"opex_usd,omitempty"`
	DiscountRate  *float64 `json:"discount_rate,omitempty"`
	LifespanYears *int     `json:"lifespan_years,omitempty"`

	// PricePerTon overrides the commodity-catalog price for agriculture
	// assets (contracted or premium-market prices).
	PricePerTon *float64 `json:"price_per_ton,omitempty"`
}

// Intervention is an optional adaptation measure attached to an asset.
// Kind is matched case-insensitively by the kernels ("sea wall",
// "sponge_city", "green_roof", ...). Params carries kernel-specific knobs
// such as mangrove width or greenium basis points.
type Intervention struct {
	Kind   string             `json:"kind"`
	Params map[string]float64 `json:"params,omitempty"`
}

// Exposure describes what stands to be lost at the asset's location.
type Exposure struct {
	AssetValueUSD   float64 `json:"asset_value_usd"`
	DailyRevenueUSD float64 `json:"daily_revenue_usd"`
	WorkforceSize   int     `json:"workforce_size"`
	DailyWageUSD    float64 `json:"daily_wage_usd"`
	Population      int     `json:"population"`
	GDPPerCapitaUSD float64 `json:"gdp_per_capita_usd"`
}

// Asset is a geolocated thing at risk. Either Location alone (point asset)
// or Location plus Polygon (raw GeoJSON, validated by the spatial engine)
// is supplied.
type Asset struct {
	ID       string      `json:"id"`
	Name     string      `json:"name,omitempty"`
	Kind     ProjectKind `json:"project_type"`
	Location Point       `json:"location"`

	// Polygon holds the raw GeoJSON Feature or Geometry when the asset is
	// areal rather than a point. Parsed lazily by the spatial engine.
	Polygon json.RawMessage `json:"polygon,omitempty"`

	// Crop applies to agriculture assets ("maize", "cocoa", ...).
	Crop string `json:"crop,omitempty"`

	Financials   *FinancialOverrides `json:"financial_overrides,omitempty"`
	Intervention *Intervention       `json:"intervention,omitempty"`
	Exposure     Exposure            `json:"exposure"`
}

// HasPolygon reports whether the asset carries areal geometry.
func (a *Asset) HasPolygon() bool { return len(a.Polygon) > 0 }

// InterventionKind returns the lower-cased intervention kind, or "" when no
// intervention is attached.
func (a *Asset) InterventionKind() string {
	if a.Intervention == nil {
		return ""
	}
	return a.Intervention.Kind
}

// InterventionParam returns a kernel-specific intervention knob, zero when
// absent.
func (a *Asset) InterventionParam(key string) float64 {
	if a.Intervention == nil {
		return 0
	}
	return a.Intervention.Params[key]
}
