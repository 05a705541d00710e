package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"free_cabins/internal/domain"
)

const listCacheKey = "list"

type CabinService struct {
	store    domain.CabinStore
	geo      domain.GeoEnricher
	cache    domain.Cache
	cacheTTL time.Duration
	sf       singleflight.Group

	now        func() time.Time
	newLocalID func() string
}

// NewCabinService wires the repository. cache may be nil.
func NewCabinService(store domain.CabinStore, geo domain.GeoEnricher, cache domain.Cache, ttl time.Duration) *CabinService {
	return &CabinService{
		store:      store,
		geo:        geo,
		cache:      cache,
		cacheTTL:   ttl,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newLocalID: manualLocalID,
	}
}

// manualLocalID returns a time-ordered identifier for cabins entered by hand.
func manualLocalID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "manual-" + uuid.NewString()
	}
	return "manual-" + id.String()
}

// List returns every cabin matching f. It never fails: on a store error or
// an empty store the built-in seed record is returned instead.
func (s *CabinService) List(ctx context.Context, f domain.CabinFilter) []domain.Cabin {
	all, err := s.loadAll(ctx)
	if err != nil {
		log.Error().Err(err).Str("context", "CabinService.List").Msg("falling back to seed data")
		return f.Apply([]domain.Cabin{seedCabin()})
	}
	if len(all) == 0 {
		all = []domain.Cabin{s.persistSeed(ctx)}
	}
	return f.Apply(all)
}

func (s *CabinService) loadAll(ctx context.Context) ([]domain.Cabin, error) {
	var cached []domain.Cabin
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, listCacheKey, &cached); ok && len(cached) > 0 {
			return cached, nil
		}
	}

	v, err, _ := s.sf.Do(listCacheKey, func() (any, error) {
		cs, err := s.store.ListCabins(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && len(cs) > 0 {
			if err := s.cache.Set(ctx, listCacheKey, cs, int(s.cacheTTL.Seconds())); err != nil {
				log.Warn().Err(err).Str("context", "CabinService.loadAll").Msg("cache set failed")
			}
		}
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Cabin), nil
}

// persistSeed writes the seed record on first run. Failure is logged and the
// unsaved seed is returned.
func (s *CabinService) persistSeed(ctx context.Context) domain.Cabin {
	log.Info().Msg("no cabins stored, seeding initial record")
	c, err := s.Create(ctx, seedDraft())
	if err != nil {
		log.Warn().Err(err).Str("context", "CabinService.persistSeed").Msg("seed not persisted")
		return seedCabin()
	}
	return c
}

func (s *CabinService) Get(ctx context.Context, id int64) (domain.Cabin, error) {
	return s.store.GetCabin(ctx, id)
}

func (s *CabinService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, listCacheKey); err != nil {
		log.Warn().Err(err).Str("context", "CabinService.invalidate").Msg("cache delete failed")
	}
}
