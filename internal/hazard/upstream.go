package hazard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/atlasclimate/atlas/internal/domain"
)

// Upstream hazard API budget: at most 10 req/s with small bursts, and a
// breaker that opens after 5 consecutive failures.
const (
	upstreamRateLimit  = 10
	upstreamBurst      = 5
	breakerMaxFailures = 5
	breakerCooldown    = 30 * time.Second
)

// Upstream queries the external hazard API. Failures, timeouts, and an open
// breaker all surface as errors; the Service translates them into fallback
// samples, never into request failures.
type Upstream struct {
	log     zerolog.Logger
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

var _ Provider = (*Upstream)(nil)

// NewUpstream builds the client. An empty base URL is a configuration error
// at the call site; the Service only constructs an Upstream when one is set.
func NewUpstream(baseURL string, timeout time.Duration, log zerolog.Logger) *Upstream {
	u := &Upstream{
		log:     log.With().Str("component", "hazard_upstream").Logger(),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(upstreamRateLimit), upstreamBurst),
	}
	u.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "hazard-api",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			u.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("breaker state change")
		},
	})
	return u
}

// get performs one rate-limited, breaker-guarded GET and decodes the JSON
// body into out.
func (u *Upstream) get(ctx context.Context, path string, lat, lon float64, out any) error {
	if err := u.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := u.breaker.Execute(func() (any, error) {
		q := url.Values{}
		q.Set("lat", fmt.Sprintf("%.4f", lat))
		q.Set("lon", fmt.Sprintf("%.4f", lon))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := u.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("hazard api %s returned %d", path, resp.StatusCode)
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	})
	return err
}

func (u *Upstream) Weather(ctx context.Context, lat, lon float64) (domain.WeatherSample, error) {
	var s domain.WeatherSample
	if err := u.get(ctx, "/v1/weather", lat, lon, &s); err != nil {
		return domain.WeatherSample{}, err
	}
	s.Provenance = domain.ProvenanceUpstream
	return s, nil
}

func (u *Upstream) Terrain(ctx context.Context, lat, lon float64) (domain.TerrainSample, error) {
	var s domain.TerrainSample
	if err := u.get(ctx, "/v1/terrain", lat, lon, &s); err != nil {
		return domain.TerrainSample{}, err
	}
	s.Provenance = domain.ProvenanceUpstream
	return s, nil
}

func (u *Upstream) Coastal(ctx context.Context, lat, lon float64) (domain.CoastalSample, error) {
	var s domain.CoastalSample
	if err := u.get(ctx, "/v1/coastal", lat, lon, &s); err != nil {
		return domain.CoastalSample{}, err
	}
	s.Provenance = domain.ProvenanceUpstream
	return s, nil
}

func (u *Upstream) Monthly(ctx context.Context, lat, lon float64) (domain.MonthlySample, error) {
	var s domain.MonthlySample
	if err := u.get(ctx, "/v1/monthly", lat, lon, &s); err != nil {
		return domain.MonthlySample{}, err
	}
	s.Provenance = domain.ProvenanceUpstream
	return s, nil
}

func (u *Upstream) NDVI(ctx context.Context, lat, lon float64) ([]domain.NDVIPoint, error) {
	var pts []domain.NDVIPoint
	if err := u.get(ctx, "/v1/ndvi", lat, lon, &pts); err != nil {
		return nil, err
	}
	return pts, nil
}
