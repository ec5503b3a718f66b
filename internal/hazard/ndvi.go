package hazard

import (
	"context"

	"github.com/markcheno/go-talib"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Vegetation trend labels.
const (
	TrendGreening = "greening"
	TrendBrowning = "browning"
	TrendStable   = "stable"
)

// NDVI smoothing windows, in months.
const (
	ndviSMAPeriod = 3
	ndviEMAPeriod = 6

	// Monthly EMA drift beyond which the series counts as trending.
	ndviTrendThreshold = 0.005
)

// VegetationReport is the smoothed NDVI summary for a coordinate.
type VegetationReport struct {
	Raw      []domain.NDVIPoint `json:"raw"`
	SMA      []domain.NDVIPoint `json:"sma_3m"`
	EMA      []domain.NDVIPoint `json:"ema_6m"`
	Latest   float64            `json:"latest"`
	Trend    string             `json:"trend"`
	SlopeMon float64            `json:"slope_per_month"`
}

// Vegetation fetches and smooths the NDVI series: a 3-month simple moving
// average and a 6-month exponential average, plus a trend classification
// from the EMA drift over the last quarter.
func (s *Service) Vegetation(ctx context.Context, lat, lon float64) (VegetationReport, error) {
	if err := ValidateCoordinate(lat, lon); err != nil {
		return VegetationReport{}, err
	}

	raw := s.NDVI(ctx, lat, lon)
	if len(raw) < ndviSMAPeriod {
		return VegetationReport{Raw: raw, Trend: TrendStable}, nil
	}

	values := make([]float64, len(raw))
	for i, p := range raw {
		values[i] = p.Value
	}

	sma := talib.Sma(values, ndviSMAPeriod)
	report := VegetationReport{
		Raw:    raw,
		SMA:    seriesFrom(raw, sma, ndviSMAPeriod-1),
		Latest: values[len(values)-1],
		Trend:  TrendStable,
	}

	if len(values) >= ndviEMAPeriod {
		ema := talib.Ema(values, ndviEMAPeriod)
		report.EMA = seriesFrom(raw, ema, ndviEMAPeriod-1)

		// Slope over the last three EMA samples.
		n := len(ema)
		if n >= ndviEMAPeriod+2 {
			report.SlopeMon = (ema[n-1] - ema[n-3]) / 2
			switch {
			case report.SlopeMon > ndviTrendThreshold:
				report.Trend = TrendGreening
			case report.SlopeMon < -ndviTrendThreshold:
				report.Trend = TrendBrowning
			}
		}
	}
	return report, nil
}

// seriesFrom pairs smoothed values back with their months, skipping the
// warm-up prefix the indicator leaves as zeros.
func seriesFrom(raw []domain.NDVIPoint, values []float64, warmup int) []domain.NDVIPoint {
	out := make([]domain.NDVIPoint, 0, len(values)-warmup)
	for i := warmup; i < len(values); i++ {
		out = append(out, domain.NDVIPoint{Month: raw[i].Month, Value: values[i]})
	}
	return out
}
