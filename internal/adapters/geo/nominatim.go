// Package geo resolves administrative area and elevation for a coordinate.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"free_cabins/internal/adapters/observability"
	"free_cabins/internal/domain"
)

type nominatimAddress struct {
	Country string `json:"country"`
	State   string `json:"state"`
	Region  string `json:"region"`
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	County  string `json:"county"`
}

type nominatimResponse struct {
	Address nominatimAddress `json:"address"`
}

// Nominatim is a reverse geocoder against the OSM Nominatim API.
type Nominatim struct {
	base string
	ua   string
	hc   *http.Client
	rl   *rate.Limiter
	cb   *gobreaker.CircuitBreaker[nominatimResponse]
}

func NewNominatim(base, userAgent string, rps float64) *Nominatim {
	if rps <= 0 {
		rps = 1
	}
	name := "nominatim"
	observability.ObserveBreaker(name, 0)
	cb := gobreaker.NewCircuitBreaker[nominatimResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			observability.ObserveBreaker(name, stateValue(to))
		},
	})
	return &Nominatim{
		base: base,
		ua:   userAgent,
		hc:   &http.Client{Timeout: 10 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), 1),
		cb:   cb,
	}
}

// Reverse returns country, region and municipality for the coordinate.
// Every failure is a *domain.GeoLookupError.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (domain.GeoInfo, error) {
	res, err := n.cb.Execute(func() (nominatimResponse, error) {
		return n.fetch(ctx, lat, lon)
	})
	if err != nil {
		var gle *domain.GeoLookupError
		if errors.As(err, &gle) {
			return domain.GeoInfo{}, gle
		}
		return domain.GeoInfo{}, &domain.GeoLookupError{Err: err}
	}

	a := res.Address
	region := a.State
	if region == "" {
		region = a.Region
	}
	return domain.GeoInfo{
		Country:      nonEmpty(a.Country),
		Region:       nonEmpty(region),
		Municipality: nonEmpty(firstOf(a.City, a.Town, a.Village, a.County)),
	}, nil
}

func (n *Nominatim) fetch(ctx context.Context, lat, lon float64) (nominatimResponse, error) {
	var out nominatimResponse
	if err := n.rl.Wait(ctx); err != nil {
		return out, &domain.GeoLookupError{Err: err}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("zoom", "10")
	q.Set("addressdetails", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return out, &domain.GeoLookupError{Err: err}
	}
	req.Header.Set("User-Agent", n.ua)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := n.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("nominatim", "reverse", 0, time.Since(start))
		return out, &domain.GeoLookupError{Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("nominatim", "reverse", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &domain.GeoLookupError{Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, &domain.GeoLookupError{Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
