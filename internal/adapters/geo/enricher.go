package geo

import (
	"context"

	"free_cabins/internal/domain"
)

// Enricher combines the reverse geocoder with the elevation lookup.
type Enricher struct {
	rev  *Nominatim
	elev *Elevation
}

func NewEnricher(rev *Nominatim, elev *Elevation) *Enricher {
	return &Enricher{rev: rev, elev: elev}
}

var _ domain.GeoEnricher = (*Enricher)(nil)

func (e *Enricher) Lookup(ctx context.Context, lat, lon float64) (domain.GeoInfo, error) {
	info, err := e.rev.Reverse(ctx, lat, lon)
	if err != nil {
		return domain.GeoInfo{}, err
	}
	info.Altitude = e.elev.Altitude(ctx, lat, lon)
	return info, nil
}
