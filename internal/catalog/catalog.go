// Package catalog loads the crop stress parameters and the commodity price
// catalog. Defaults are embedded; an optional file path can override either
// table at startup. Lookup is case-insensitive and alias-aware.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/atlasclimate/atlas/internal/domain"
)

//go:embed crops.yaml
var defaultCropsYAML []byte

//go:embed commodities.yaml
var defaultCommoditiesYAML []byte

// CropParams holds the stress-curve parameters for one crop.
type CropParams struct {
	Name           string   `yaml:"name"`
	Aliases        []string `yaml:"aliases"`
	RainMinMM      float64  `yaml:"rain_min_mm"`
	RainOptLowMM   float64  `yaml:"rain_opt_low_mm"`
	RainOptHighMM  float64  `yaml:"rain_opt_high_mm"`
	WaterloggingMM float64  `yaml:"waterlogging_mm"`
	CriticalTempC  float64  `yaml:"critical_temp_c"`
	PHOptLow       float64  `yaml:"ph_opt_low"`
	PHOptHigh      float64  `yaml:"ph_opt_high"`
	BaseYieldTHa   float64  `yaml:"base_yield_t_ha"`
}

// Commodity holds the price and supply elasticity for one commodity.
type Commodity struct {
	Name             string   `yaml:"name"`
	Aliases          []string `yaml:"aliases"`
	PriceUSDPerTon   float64  `yaml:"price_usd_per_ton"`
	SupplyElasticity float64  `yaml:"supply_elasticity"`
}

type cropsFile struct {
	Crops []CropParams `yaml:"crops"`
}

type commoditiesFile struct {
	Commodities []Commodity `yaml:"commodities"`
}

// Catalog is the immutable lookup table built once at startup.
type Catalog struct {
	crops       map[string]CropParams
	commodities map[string]Commodity
	cropNames   []string
}

// Load builds the catalog from the embedded defaults, optionally overridden
// by YAML files on disk (empty paths keep the defaults).
func Load(cropsPath, commoditiesPath string) (*Catalog, error) {
	cropsData := defaultCropsYAML
	if cropsPath != "" {
		b, err := os.ReadFile(cropsPath)
		if err != nil {
			return nil, fmt.Errorf("read crops catalog: %w", err)
		}
		cropsData = b
	}
	commoditiesData := defaultCommoditiesYAML
	if commoditiesPath != "" {
		b, err := os.ReadFile(commoditiesPath)
		if err != nil {
			return nil, fmt.Errorf("read commodities catalog: %w", err)
		}
		commoditiesData = b
	}

	var cf cropsFile
	if err := yaml.Unmarshal(cropsData, &cf); err != nil {
		return nil, fmt.Errorf("parse crops catalog: %w", err)
	}
	var mf commoditiesFile
	if err := yaml.Unmarshal(commoditiesData, &mf); err != nil {
		return nil, fmt.Errorf("parse commodities catalog: %w", err)
	}

	c := &Catalog{
		crops:       make(map[string]CropParams, len(cf.Crops)),
		commodities: make(map[string]Commodity, len(mf.Commodities)),
	}
	for _, crop := range cf.Crops {
		c.crops[normalize(crop.Name)] = crop
		for _, a := range crop.Aliases {
			c.crops[normalize(a)] = crop
		}
		c.cropNames = append(c.cropNames, crop.Name)
	}
	for _, com := range mf.Commodities {
		c.commodities[normalize(com.Name)] = com
		for _, a := range com.Aliases {
			c.commodities[normalize(a)] = com
		}
	}
	return c, nil
}

// MustLoad loads the embedded defaults and panics on parse failure. Embedded
// YAML is part of the binary, so failure here is a build defect.
func MustLoad() *Catalog {
	c, err := Load("", "")
	if err != nil {
		panic(err)
	}
	return c
}

// Crop resolves a crop by name or alias. Unknown crops return a structured
// INVALID_INPUT error naming the known set.
func (c *Catalog) Crop(name string) (CropParams, error) {
	crop, ok := c.crops[normalize(name)]
	if !ok {
		return CropParams{}, domain.Invalidf("unknown crop %q (known: %s)", name, strings.Join(c.cropNames, ", "))
	}
	return crop, nil
}

// Commodity resolves a commodity by name or alias.
func (c *Catalog) Commodity(name string) (Commodity, error) {
	com, ok := c.commodities[normalize(name)]
	if !ok {
		return Commodity{}, domain.Invalidf("unknown commodity %q", name)
	}
	return com, nil
}

// CropNames lists the canonical crop names in catalog order.
func (c *Catalog) CropNames() []string {
	out := make([]string, len(c.cropNames))
	copy(out, c.cropNames)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
