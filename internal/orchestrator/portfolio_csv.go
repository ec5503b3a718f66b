package orchestrator

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Column detection is fuzzy: header names are lowered and stripped of
// punctuation, then matched by substring. Value columns answer to several
// monetary spellings; numeric cells accept k/m/b magnitude suffixes.
var valueColumnHints = []string{"val", "price", "amount", "cost", "invest", "usd"}

// columnMap locates the columns a portfolio CSV must provide.
type columnMap struct {
	lat, lon, value  int
	name, kind, crop int

	// Optional upload-level scenario columns.
	year, tempDelta, rainChange int
}

// ScenarioOverride carries the optional scenario columns of a portfolio CSV
// (scenario_year, temp_delta, rain_pct_change). Values come from the first
// data row that provides them and apply to the whole upload; nil fields mean
// the column was absent or empty.
type ScenarioOverride struct {
	Year          *int
	TempDeltaC    *float64
	RainPctChange *float64
}

// Apply overlays the override onto a base scenario. The temperature delta
// moves GlobalWarmingC with it so lifespan penalties track the upload.
func (o *ScenarioOverride) Apply(sc domain.Scenario) domain.Scenario {
	if o == nil {
		return sc
	}
	if o.Year != nil {
		sc.Year = *o.Year
	}
	if o.TempDeltaC != nil {
		sc.TempDeltaC = *o.TempDeltaC
		sc.GlobalWarmingC = *o.TempDeltaC
	}
	if o.RainPctChange != nil {
		sc.RainPctChange = *o.RainPctChange
	}
	return sc
}

// ParsePortfolioCSV reads a portfolio table into assets. Missing latitude,
// longitude, or value columns reject the whole upload with a structured
// error before any simulation starts.
func ParsePortfolioCSV(r io.Reader, defaultKind domain.ProjectKind) ([]*domain.Asset, *ScenarioOverride, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, domain.Invalid("portfolio CSV is empty or unreadable")
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var assets []*domain.Asset
	override := &ScenarioOverride{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, domain.Invalidf("row %d is malformed: %v", line, err)
		}

		asset, err := assetFromRecord(record, cols, defaultKind, line)
		if err != nil {
			return nil, nil, err
		}
		assets = append(assets, asset)

		if err := override.fromRecord(record, cols, line); err != nil {
			return nil, nil, err
		}
	}

	if len(assets) == 0 {
		return nil, nil, domain.Invalid("portfolio CSV has no data rows")
	}
	return assets, override, nil
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{
		lat: -1, lon: -1, value: -1, name: -1, kind: -1, crop: -1,
		year: -1, tempDelta: -1, rainChange: -1,
	}

	for i, raw := range header {
		name := normalizeHeader(raw)
		switch {
		case cols.lat == -1 && strings.Contains(name, "lat"):
			cols.lat = i
		case cols.lon == -1 && (strings.Contains(name, "lon") || strings.Contains(name, "lng")):
			cols.lon = i
		case cols.year == -1 && strings.Contains(name, "year"):
			cols.year = i
		case cols.tempDelta == -1 && strings.Contains(name, "temp"):
			cols.tempDelta = i
		case cols.rainChange == -1 && strings.Contains(name, "rain"):
			cols.rainChange = i
		case cols.value == -1 && hasValueHint(name):
			cols.value = i
		case cols.name == -1 && strings.Contains(name, "name"):
			cols.name = i
		case cols.kind == -1 && (strings.Contains(name, "type") || strings.Contains(name, "project")):
			cols.kind = i
		case cols.crop == -1 && strings.Contains(name, "crop"):
			cols.crop = i
		}
	}

	var missing []string
	if cols.lat == -1 {
		missing = append(missing, "latitude")
	}
	if cols.lon == -1 {
		missing = append(missing, "longitude")
	}
	if cols.value == -1 {
		missing = append(missing, "value")
	}
	if len(missing) > 0 {
		return cols, domain.Invalidf("portfolio CSV is missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hasValueHint(name string) bool {
	for _, hint := range valueColumnHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func assetFromRecord(record []string, cols columnMap, defaultKind domain.ProjectKind, line int) (*domain.Asset, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	lat, err := strconv.ParseFloat(cell(cols.lat), 64)
	if err != nil {
		return nil, domain.Invalidf("row %d: latitude %q is not numeric", line, cell(cols.lat))
	}
	lon, err := strconv.ParseFloat(cell(cols.lon), 64)
	if err != nil {
		return nil, domain.Invalidf("row %d: longitude %q is not numeric", line, cell(cols.lon))
	}
	value, err := ParseMonetary(cell(cols.value))
	if err != nil {
		return nil, domain.Invalidf("row %d: value %q is not numeric", line, cell(cols.value))
	}

	kind := defaultKind
	if k := cell(cols.kind); k != "" {
		kind = normalizeKind(k)
		if !kind.Valid() {
			return nil, domain.Invalidf("row %d: unknown project type %q", line, k)
		}
	}

	name := cell(cols.name)
	if name == "" {
		name = fmt.Sprintf("asset-%d", line-1)
	}

	return &domain.Asset{
		ID:       fmt.Sprintf("row-%d", line-1),
		Name:     name,
		Kind:     kind,
		Location: domain.Point{Lat: lat, Lon: lon},
		Crop:     cell(cols.crop),
		Exposure: domain.Exposure{AssetValueUSD: value},
	}, nil
}

// fromRecord fills the still-empty override fields from one row. Rainfall
// change accepts both fractional (-0.30) and spreadsheet integer-percent
// (-30 or "-30%") spellings; anything beyond magnitude 1 is divided by 100.
func (o *ScenarioOverride) fromRecord(record []string, cols columnMap, line int) error {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	if o.Year == nil && cols.year >= 0 {
		if s := cell(cols.year); s != "" {
			y, err := strconv.Atoi(s)
			if err != nil {
				return domain.Invalidf("row %d: scenario year %q is not numeric", line, s)
			}
			o.Year = &y
		}
	}
	if o.TempDeltaC == nil && cols.tempDelta >= 0 {
		if s := cell(cols.tempDelta); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return domain.Invalidf("row %d: temp delta %q is not numeric", line, s)
			}
			o.TempDeltaC = &v
		}
	}
	if o.RainPctChange == nil && cols.rainChange >= 0 {
		if s := cell(cols.rainChange); s != "" {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
			if err != nil {
				return domain.Invalidf("row %d: rain change %q is not numeric", line, s)
			}
			if math.Abs(v) > 1 {
				v /= 100
			}
			o.RainPctChange = &v
		}
	}
	return nil
}

func normalizeKind(s string) domain.ProjectKind {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.ReplaceAll(k, " ", "_")
	switch k {
	case "agri", "farm", "farming":
		return domain.ProjectAgriculture
	case "urban_flood", "pluvial":
		return domain.ProjectUrbanFlood
	case "coastal_flood":
		return domain.ProjectCoastal
	}
	return domain.ProjectKind(k)
}

// ParseMonetary parses a money cell, accepting commas, a leading currency
// sign, and k/m/b magnitude suffixes ("1.5m" = 1,500,000).
func ParseMonetary(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k':
		mult, s = 1e3, s[:len(s)-1]
	case 'm':
		mult, s = 1e6, s[:len(s)-1]
	case 'b':
		mult, s = 1e9, s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}
