package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"free_cabins/internal/adapters/observability"
	"free_cabins/internal/domain"
)

type ImportService struct {
	source domain.ShelterSource
	store  domain.CabinStore
	cache  domain.Cache
	now    func() time.Time
}

func NewImportService(src domain.ShelterSource, store domain.CabinStore, cache domain.Cache) *ImportService {
	return &ImportService{
		source: src,
		store:  store,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// ImportCAI pulls the full CAI directory and upserts it keyed by local id.
// Nothing is written unless every page was fetched, and one failing entry
// rolls back the whole batch.
func (s *ImportService) ImportCAI(ctx context.Context) (int, error) {
	start := time.Now()
	shelters, err := s.source.FetchAll(ctx)
	if err != nil {
		observability.ObserveImport("cai", 0, err)
		log.Error().Err(err).Str("context", "ImportCAI").Msg("fetch failed")
		return 0, err
	}

	now := s.now()
	cabins := make([]domain.Cabin, 0, len(shelters))
	for i, sh := range shelters {
		if sh.IDCAI == 0 {
			ferr := &domain.FetchError{Source: "cai", Err: fmt.Errorf("entry %d: missing id_cai", i)}
			observability.ObserveImport("cai", 0, ferr)
			log.Error().Err(ferr).Str("context", "ImportCAI").Msg("unusable entry")
			return 0, ferr
		}
		cabins = append(cabins, mapShelter(sh, now))
	}

	if err := s.store.UpsertImported(ctx, cabins); err != nil {
		werr := &domain.WriteError{Op: "import", Err: err}
		observability.ObserveImport("cai", len(cabins), werr)
		log.Error().Err(err).Str("context", "ImportCAI").Int("entries", len(cabins)).Msg("persist failed")
		return 0, werr
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, listCacheKey); err != nil {
			log.Warn().Err(err).Str("context", "ImportCAI").Msg("cache delete failed")
		}
	}
	observability.ObserveImport("cai", len(cabins), nil)
	log.Info().Int("count", len(cabins)).Dur("took", time.Since(start)).Msg("cai import finished")
	return len(cabins), nil
}
