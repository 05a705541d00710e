package geo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"free_cabins/internal/adapters/observability"
)

type elevationResponse struct {
	Results []struct {
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

// Elevation queries an Open-Elevation compatible lookup endpoint.
type Elevation struct {
	base string
	hc   *http.Client
}

func NewElevation(base string) *Elevation {
	return &Elevation{base: base, hc: &http.Client{Timeout: 10 * time.Second}}
}

// Altitude returns meters above sea level rounded to an integer. It never
// fails: any problem is logged and yields nil.
func (e *Elevation) Altitude(ctx context.Context, lat, lon float64) *int {
	v, err := e.lookup(ctx, lat, lon)
	if err != nil {
		log.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("elevation lookup failed")
		return nil
	}
	m := int(math.Round(v))
	return &m
}

func (e *Elevation) lookup(ctx context.Context, lat, lon float64) (float64, error) {
	loc := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.base+"/api/v1/lookup?locations="+loc, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("elevation", "lookup", 0, time.Since(start))
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("elevation", "lookup", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	var out elevationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	if len(out.Results) == 0 || out.Results[0].Elevation == nil {
		return 0, fmt.Errorf("no elevation in response")
	}
	return *out.Results[0].Elevation, nil
}
