package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"free_cabins/internal/domain"
)

type cabinRow struct {
	ID              int64          `db:"id"`
	LocalID         string         `db:"local_id"`
	Name            string         `db:"name"`
	Country         sql.NullString `db:"country"`
	Region          sql.NullString `db:"region"`
	Municipality    sql.NullString `db:"municipality"`
	Latitude        float64        `db:"latitude"`
	Longitude       float64        `db:"longitude"`
	Altitude        sql.NullInt64  `db:"altitude"`
	Capacity        sql.NullInt64  `db:"capacity"`
	Amenities       sql.NullString `db:"amenities"`
	IsFree          sql.NullBool   `db:"is_free"`
	RequiresBooking sql.NullBool   `db:"requires_booking"`
	Type            sql.NullString `db:"type"`
	Email           sql.NullString `db:"email"`
	Phone           sql.NullString `db:"phone"`
	Website         sql.NullString `db:"website"`
	Facebook        sql.NullString `db:"facebook"`
	Instagram       sql.NullString `db:"instagram"`
	Description     sql.NullString `db:"description"`
	LastUpdated     time.Time      `db:"last_updated"`
}

type imageRow struct {
	ID           int64          `db:"id"`
	CabinLocalID string         `db:"cabin_local_id"`
	Name         sql.NullString `db:"name"`
	FileName     string         `db:"file_name"`
	MimeType     sql.NullString `db:"mime_type"`
	OriginalURL  sql.NullString `db:"original_url"`
	PreviewURL   sql.NullString `db:"preview_url"`
}

func nullStr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseAmenities tolerates legacy rows: a JSON list, a bare scalar, or NULL.
func parseAmenities(raw sql.NullString) []string {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw.String), &list); err == nil {
		if list == nil {
			return []string{}
		}
		return list
	}
	var one string
	if err := json.Unmarshal([]byte(raw.String), &one); err == nil {
		return []string{one}
	}
	return []string{raw.String}
}

func (r cabinRow) toDomain() domain.Cabin {
	return domain.Cabin{
		ID:              r.ID,
		LocalID:         r.LocalID,
		Name:            r.Name,
		Country:         nullStr(r.Country),
		Region:          nullStr(r.Region),
		Municipality:    nullStr(r.Municipality),
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		Altitude:        nullInt(r.Altitude),
		Capacity:        nullInt(r.Capacity),
		Amenities:       parseAmenities(r.Amenities),
		IsFree:          r.IsFree.Valid && r.IsFree.Bool,
		RequiresBooking: r.RequiresBooking.Valid && r.RequiresBooking.Bool,
		Type:            nullStr(r.Type),
		Email:           nullStr(r.Email),
		Phone:           nullStr(r.Phone),
		Website:         nullStr(r.Website),
		Facebook:        nullStr(r.Facebook),
		Instagram:       nullStr(r.Instagram),
		Description:     nullStr(r.Description),
		LastUpdated:     r.LastUpdated.UTC(),
		Images:          []domain.CabinImage{},
	}
}

func (r imageRow) toDomain() domain.CabinImage {
	return domain.CabinImage{
		ID:          r.ID,
		Name:        r.Name.String,
		FileName:    r.FileName,
		MimeType:    r.MimeType.String,
		OriginalURL: r.OriginalURL.String,
		PreviewURL:  nullStr(r.PreviewURL),
	}
}

func cabinArgs(c domain.Cabin) map[string]any {
	amenities := c.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	amen, _ := json.Marshal(amenities)
	return Sanitize(map[string]any{
		"id":               c.ID,
		"local_id":         c.LocalID,
		"name":             c.Name,
		"country":          c.Country,
		"region":           c.Region,
		"municipality":     c.Municipality,
		"latitude":         c.Latitude,
		"longitude":        c.Longitude,
		"altitude":         c.Altitude,
		"capacity":         c.Capacity,
		"amenities":        string(amen),
		"is_free":          c.IsFree,
		"requires_booking": c.RequiresBooking,
		"type":             c.Type,
		"email":            c.Email,
		"phone":            c.Phone,
		"website":          c.Website,
		"facebook":         c.Facebook,
		"instagram":        c.Instagram,
		"description":      c.Description,
		"last_updated":     c.LastUpdated.UTC(),
	})
}

func imageArgs(localID string, img domain.CabinImage) map[string]any {
	return Sanitize(map[string]any{
		"cabin_local_id": localID,
		"name":           img.Name,
		"file_name":      img.FileName,
		"mime_type":      emptyToNil(img.MimeType),
		"original_url":   img.OriginalURL,
		"preview_url":    img.PreviewURL,
	})
}

type Repo struct{ db *sqlx.DB }

func New(db *sql.DB) *Repo { return &Repo{db: sqlx.NewDb(db, "mysql")} }

// EnsureSchema creates missing tables and seeds the configured admin identity.
func (r *Repo) EnsureSchema(ctx context.Context, admin string) error {
	for _, stmt := range schemaSQL {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	if admin != "" {
		if err := r.AddAdmin(ctx, admin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	log.Info().Msg("database schema ready")
	return nil
}

func (r *Repo) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Str("context", "withTx").Msg("rollback failed")
		}
		return err
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------
// Read paths
// -----------------------------------------------------------------------------

func (r *Repo) ListCabins(ctx context.Context) ([]domain.Cabin, error) {
	var rows []cabinRow
	if err := r.db.SelectContext(ctx, &rows, listCabinsSQL); err != nil {
		return nil, fmt.Errorf("list cabins: %w", err)
	}
	var imgs []imageRow
	if err := r.db.SelectContext(ctx, &imgs, listImagesSQL); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	byLocal := make(map[string][]domain.CabinImage, len(rows))
	for _, im := range imgs {
		byLocal[im.CabinLocalID] = append(byLocal[im.CabinLocalID], im.toDomain())
	}

	out := make([]domain.Cabin, 0, len(rows))
	for _, row := range rows {
		c := row.toDomain()
		if ims, ok := byLocal[c.LocalID]; ok {
			c.Images = ims
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repo) GetCabin(ctx context.Context, id int64) (domain.Cabin, error) {
	var row cabinRow
	if err := r.db.GetContext(ctx, &row, getCabinSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cabin{}, &domain.NotFoundError{ID: id}
		}
		return domain.Cabin{}, fmt.Errorf("get cabin %d: %w", id, err)
	}
	c := row.toDomain()

	var imgs []imageRow
	if err := r.db.SelectContext(ctx, &imgs, imagesByLocalIDSQL, c.LocalID); err != nil {
		return domain.Cabin{}, fmt.Errorf("get images %s: %w", c.LocalID, err)
	}
	for _, im := range imgs {
		c.Images = append(c.Images, im.toDomain())
	}
	return c, nil
}

// FindMatch returns the first cabin near (lat, lon) or named like name, or nil.
func (r *Repo) FindMatch(ctx context.Context, lat, lon float64, name string) (*domain.Cabin, error) {
	var row cabinRow
	err := r.db.GetContext(ctx, &row, findMatchSQL,
		lat, domain.MatchEpsilon, lon, domain.MatchEpsilon, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	c := row.toDomain()
	return &c, nil
}

// -----------------------------------------------------------------------------
// Write paths
// -----------------------------------------------------------------------------

func (r *Repo) InsertCabin(ctx context.Context, c domain.Cabin) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, insertCabinSQL, cabinArgs(c))
		if err != nil {
			return fmt.Errorf("insert cabin %s: %w", c.LocalID, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return writeImages(ctx, tx, upsertImageSQL, c.LocalID, c.Images)
	})
	return id, err
}

func (r *Repo) UpdateCabin(ctx context.Context, c domain.Cabin, images domain.ImageWrite) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var prevLocal string
		if err := tx.GetContext(ctx, &prevLocal, lockLocalIDSQL, c.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &domain.NotFoundError{ID: c.ID}
			}
			return fmt.Errorf("lock cabin %d: %w", c.ID, err)
		}
		if _, err := tx.NamedExecContext(ctx, updateCabinSQL, cabinArgs(c)); err != nil {
			return fmt.Errorf("update cabin %d: %w", c.ID, err)
		}
		// images follow the natural key
		if prevLocal != c.LocalID {
			if _, err := tx.ExecContext(ctx, relinkImagesSQL, c.LocalID, prevLocal); err != nil {
				return fmt.Errorf("relink images %s: %w", prevLocal, err)
			}
		}

		switch images {
		case domain.ImagesUpsert:
			return writeImages(ctx, tx, upsertImageSQL, c.LocalID, c.Images)
		case domain.ImagesReplace:
			if _, err := tx.ExecContext(ctx, deleteImagesSQL, c.LocalID); err != nil {
				return fmt.Errorf("delete images %s: %w", c.LocalID, err)
			}
			return writeImages(ctx, tx, insertImageSQL, c.LocalID, c.Images)
		}
		return nil
	})
}

func (r *Repo) DeleteCabin(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		var localID string
		if err := tx.GetContext(ctx, &localID, lockLocalIDSQL, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &domain.NotFoundError{ID: id}
			}
			return fmt.Errorf("lock cabin %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, deleteImagesSQL, localID); err != nil {
			return fmt.Errorf("delete images %s: %w", localID, err)
		}
		if _, err := tx.ExecContext(ctx, deleteCabinSQL, id); err != nil {
			return fmt.Errorf("delete cabin %d: %w", id, err)
		}
		return nil
	})
}

// UpsertImported writes directory records keyed by local_id in a single
// transaction; the first failing entry rolls everything back.
func (r *Repo) UpsertImported(ctx context.Context, cs []domain.Cabin) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range cs {
			if _, err := tx.NamedExecContext(ctx, upsertImportedCabinSQL, cabinArgs(c)); err != nil {
				return fmt.Errorf("upsert %s: %w", c.LocalID, err)
			}
			if err := writeImages(ctx, tx, insertImageIgnoreSQL, c.LocalID, c.Images); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeImages(ctx context.Context, tx *sqlx.Tx, stmt, localID string, imgs []domain.CabinImage) error {
	for _, img := range imgs {
		if _, err := tx.NamedExecContext(ctx, stmt, imageArgs(localID, img)); err != nil {
			return fmt.Errorf("write image %s/%s: %w", localID, img.FileName, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Admins
// -----------------------------------------------------------------------------

func (r *Repo) IsAdmin(ctx context.Context, username string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, isAdminSQL, username); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repo) AddAdmin(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, insertAdminSQL, username)
	return err
}

func (r *Repo) RemoveAdmin(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, deleteAdminSQL, username)
	return err
}
