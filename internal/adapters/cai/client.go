// Package cai reads the public shelter directory of the Club Alpino Italiano.
package cai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"free_cabins/internal/adapters/observability"
	"free_cabins/internal/domain"
)

const source = "cai"

// wire types

type shelterField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type shelterMedia struct {
	ID          int64  `json:"id"`
	OriginalURL string `json:"original_url"`
	PreviewURL  string `json:"preview_url"`
	Name        string `json:"name"`
	FileName    string `json:"file_name"`
}

type shelter struct {
	ID        int64             `json:"id"`
	IDCAI     int64             `json:"id_cai"`
	Title     string            `json:"title"`
	Geo       *geojson.Geometry `json:"geo"`
	UpdatedAt string            `json:"updated_at"`
	Fields    []shelterField    `json:"fields"`
	Media     []shelterMedia    `json:"media"`
}

type searchPage struct {
	Results struct {
		CurrentPage int       `json:"current_page"`
		Data        []shelter `json:"data"`
		NextPageURL *string   `json:"next_page_url"`
	} `json:"results"`
}

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

// New builds a client that waits at least pageDelay between page requests.
func New(base string, pageDelay time.Duration) *Client {
	if pageDelay <= 0 {
		pageDelay = 250 * time.Millisecond
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 30 * time.Second},
		rl:   rate.NewLimiter(rate.Every(pageDelay), 1),
	}
}

var _ domain.ShelterSource = (*Client)(nil)

// FetchAll walks the search listing from page 1 until next_page_url is null.
// Any failed page aborts the walk and nothing is returned.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Shelter, error) {
	var all []domain.Shelter
	for page := 1; ; page++ {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}
		p, err := c.page(ctx, page)
		if err != nil {
			return nil, err
		}
		for i, s := range p.Results.Data {
			sh, err := toDomain(s)
			if err != nil {
				return nil, &domain.FetchError{
					Source: source,
					URL:    c.base + "/shelters/search?page=" + strconv.Itoa(page),
					Err:    fmt.Errorf("entry %d: %w", i, err),
				}
			}
			all = append(all, sh)
		}
		log.Debug().Int("page", page).Int("count", len(p.Results.Data)).Msg("cai page fetched")
		if p.Results.NextPageURL == nil || *p.Results.NextPageURL == "" {
			return all, nil
		}
	}
}

func (c *Client) page(ctx context.Context, n int) (searchPage, error) {
	var out searchPage
	u := c.base + "/shelters/search?page=" + strconv.Itoa(n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, &domain.FetchError{Source: source, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(source, "shelters_search", 0, time.Since(start))
		return out, &domain.FetchError{Source: source, URL: u, Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(source, "shelters_search", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return out, &domain.FetchError{
			Source: source, URL: u, Status: resp.StatusCode,
			Err: fmt.Errorf("%s", strings.TrimSpace(string(b))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, &domain.FetchError{Source: source, URL: u, Err: fmt.Errorf("decode page %d: %w", n, err)}
	}
	return out, nil
}

// toDomain rejects entries that cannot become a cabin: every cabin needs a
// position and a stable upsert key.
func toDomain(s shelter) (domain.Shelter, error) {
	if s.IDCAI == 0 {
		return domain.Shelter{}, fmt.Errorf("shelter %d: missing id_cai", s.ID)
	}
	if s.Geo == nil {
		return domain.Shelter{}, fmt.Errorf("shelter %d: missing geo", s.IDCAI)
	}
	p, ok := s.Geo.Coordinates.(orb.Point)
	if !ok {
		return domain.Shelter{}, fmt.Errorf("shelter %d: geo is not a point", s.IDCAI)
	}
	out := domain.Shelter{
		ID:        s.ID,
		IDCAI:     s.IDCAI,
		Title:     s.Title,
		Point:     p,
		UpdatedAt: s.UpdatedAt,
	}
	for _, f := range s.Fields {
		out.Fields = append(out.Fields, domain.ShelterField{Name: f.Name, Value: f.Value})
	}
	for _, m := range s.Media {
		out.Media = append(out.Media, domain.ShelterMedia{
			ID: m.ID, Name: m.Name, FileName: m.FileName,
			OriginalURL: m.OriginalURL, PreviewURL: m.PreviewURL,
		})
	}
	return out, nil
}
