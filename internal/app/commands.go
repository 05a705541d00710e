package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"free_cabins/internal/domain"
)

// Create inserts d or merges it into the first existing cabin that is
// within domain.MatchEpsilon of it or carries the same name.
func (s *CabinService) Create(ctx context.Context, d domain.CabinDraft) (domain.Cabin, error) {
	d = normalizeDraft(d)
	if err := validateDraft(d); err != nil {
		return domain.Cabin{}, err
	}

	existing, err := s.store.FindMatch(ctx, *d.Latitude, *d.Longitude, *d.Name)
	if err != nil {
		return domain.Cabin{}, &domain.WriteError{Op: "find match", Err: err}
	}

	var geo domain.GeoInfo
	if d.NeedsGeo() {
		geo, err = s.geo.Lookup(ctx, *d.Latitude, *d.Longitude)
		if err != nil {
			return domain.Cabin{}, &domain.WriteError{Op: "enrich", Err: err}
		}
	}

	c := mergeDraft(d, geo, existing, s.now())
	if c.LocalID == "" {
		c.LocalID = s.newLocalID()
	}

	if existing != nil {
		if err := s.store.UpdateCabin(ctx, c, domain.ImagesUpsert); err != nil {
			return domain.Cabin{}, &domain.WriteError{Op: "update", Err: err}
		}
		log.Info().Int64("id", c.ID).Str("local_id", c.LocalID).Msg("cabin merged")
	} else {
		id, err := s.store.InsertCabin(ctx, c)
		if err != nil {
			return domain.Cabin{}, &domain.WriteError{Op: "insert", Err: err}
		}
		c.ID = id
		log.Info().Int64("id", c.ID).Str("local_id", c.LocalID).Msg("cabin created")
	}
	s.invalidate(ctx)

	// re-read so the result carries every stored image
	stored, err := s.store.GetCabin(ctx, c.ID)
	if err != nil {
		log.Warn().Err(err).Int64("id", c.ID).Str("context", "CabinService.Create").Msg("read back failed")
		return c, nil
	}
	return stored, nil
}

// Update shallow-merges p onto cabin id and rewrites every column. Images
// are replaced only when p carries an images key.
func (s *CabinService) Update(ctx context.Context, id int64, p domain.CabinPatch) (domain.Cabin, error) {
	if err := validatePatch(p); err != nil {
		return domain.Cabin{}, err
	}
	c, err := s.store.GetCabin(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Cabin{}, err
		}
		return domain.Cabin{}, &domain.WriteError{Op: "load", Err: err}
	}

	applyPatch(&c, p)
	c.LastUpdated = s.now()

	images := domain.ImagesKeep
	if p.Images.Set {
		images = domain.ImagesReplace
	}
	if err := s.store.UpdateCabin(ctx, c, images); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Cabin{}, err
		}
		return domain.Cabin{}, &domain.WriteError{Op: "update", Err: err}
	}
	s.invalidate(ctx)
	log.Info().Int64("id", id).Bool("images_replaced", p.Images.Set).Msg("cabin updated")
	return c, nil
}

// Delete removes the cabin and its images.
func (s *CabinService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCabin(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return &domain.WriteError{Op: "delete", Err: err}
	}
	s.invalidate(ctx)
	log.Info().Int64("id", id).Msg("cabin deleted")
	return nil
}

// BulkImport runs Create for each draft in order and stops at the first
// failure. It returns how many drafts were written.
func (s *CabinService) BulkImport(ctx context.Context, drafts []domain.CabinDraft) (int, error) {
	for i, d := range drafts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if _, err := s.Create(ctx, d); err != nil {
			return i, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return len(drafts), nil
}
