package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"free_cabins/internal/app"
	"free_cabins/internal/domain"
)

func fullGeo() *fakeGeo {
	return &fakeGeo{info: domain.GeoInfo{
		Country:      ptr("Italia"),
		Region:       ptr("Lombardia"),
		Municipality: ptr("Schilpario"),
		Altitude:     ptr(1800),
	}}
}

func draft(name string, lat, lon float64) domain.CabinDraft {
	return domain.CabinDraft{Name: ptr(name), Latitude: ptr(lat), Longitude: ptr(lon)}
}

func TestCreate_EnrichesOnceAndKeepsExplicitFields(t *testing.T) {
	store, geo := newMemStore(), fullGeo()
	svc := app.NewCabinService(store, geo, nil, time.Minute)

	d := draft("Bivacco Frattini", 46.1, 10.1)
	d.Country = ptr("Italy")
	d.Altitude = ptr(2100)

	c, err := svc.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if geo.calls != 1 {
		t.Fatalf("enrichment calls = %d, want 1", geo.calls)
	}
	if *c.Country != "Italy" || *c.Altitude != 2100 {
		t.Fatalf("explicit fields overwritten: country=%s altitude=%d", *c.Country, *c.Altitude)
	}
	if *c.Region != "Lombardia" || *c.Municipality != "Schilpario" {
		t.Fatalf("gaps not filled: %+v", c)
	}
}

func TestCreate_SkipsEnrichmentWhenComplete(t *testing.T) {
	store, geo := newMemStore(), fullGeo()
	svc := app.NewCabinService(store, geo, nil, time.Minute)

	d := draft("Capanna Ca' d'Asti", 45.2, 7.1)
	d.Country, d.Region, d.Municipality, d.Altitude = ptr("Italy"), ptr("Piemonte"), ptr("Mompantero"), ptr(2854)
	if _, err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if geo.calls != 0 {
		t.Fatalf("enrichment should not run, calls = %d", geo.calls)
	}
}

func TestCreate_NearbyCoordinatesMerge(t *testing.T) {
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)
	ctx := context.Background()

	first := draft("Test Hut", 46.1142, 10.0779)
	first.Capacity = ptr(4)
	a, err := svc.Create(ctx, first)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	b, err := svc.Create(ctx, draft("Test Hut 2", 46.11425, 10.07795))
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(store.rows))
	}
	if b.ID != a.ID || b.LocalID != a.LocalID {
		t.Fatalf("identity not preserved: %d/%s vs %d/%s", a.ID, a.LocalID, b.ID, b.LocalID)
	}
	if b.Name != "Test Hut 2" || b.Capacity == nil || *b.Capacity != 4 {
		t.Fatalf("merge precedence wrong: %+v", b)
	}
	if len(b.Amenities) != 0 || b.Amenities == nil {
		t.Fatalf("amenities should default to empty list, got %#v", b.Amenities)
	}
}

func TestCreate_NameMatchIgnoresCoordinates(t *testing.T) {
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)
	ctx := context.Background()

	seed := draft("Rifugio Brunone", 46.05, 9.95)
	seed.Email = ptr("info@brunone.it")
	a, _ := svc.Create(ctx, seed)

	b, err := svc.Create(ctx, draft("RIFUGIO BRUNONE", 46.9, 9.1))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID != a.ID || len(store.rows) != 1 {
		t.Fatalf("expected name match to update row %d, got %d (rows=%d)", a.ID, b.ID, len(store.rows))
	}
	if b.Latitude != 46.9 || b.Email == nil || *b.Email != "info@brunone.it" {
		t.Fatalf("candidate should win, matched row fills gaps: %+v", b)
	}
}

func TestCreate_LocalID(t *testing.T) {
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)
	ctx := context.Background()

	a, err := svc.Create(ctx, draft("Bivacco Zeni", 46.2, 10.3))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(a.LocalID, "manual-") {
		t.Fatalf("synthesized local id = %q", a.LocalID)
	}

	b, _ := svc.Create(ctx, draft("Bivacco Zeni", 46.2, 10.3))
	if b.LocalID != a.LocalID {
		t.Fatalf("merge should keep matched local id: %q vs %q", b.LocalID, a.LocalID)
	}

	d := draft("Bivacco Zeni", 46.2, 10.3)
	d.LocalID = ptr("cai-77")
	c, _ := svc.Create(ctx, d)
	if c.LocalID != "cai-77" {
		t.Fatalf("candidate local id should win, got %q", c.LocalID)
	}
}

func TestCreate_Validation(t *testing.T) {
	geo := fullGeo()
	svc := app.NewCabinService(newMemStore(), geo, nil, time.Minute)
	cases := []struct {
		name  string
		d     domain.CabinDraft
		field string
	}{
		{"missing name", domain.CabinDraft{Latitude: ptr(1.0), Longitude: ptr(1.0)}, "name"},
		{"blank name", draft("   ", 1, 1), "name"},
		{"missing latitude", domain.CabinDraft{Name: ptr("x"), Longitude: ptr(1.0)}, "latitude"},
		{"latitude range", draft("x", 91, 1), "latitude"},
		{"longitude range", draft("x", 1, -181), "longitude"},
		{"image file name", func() domain.CabinDraft {
			d := draft("x", 1, 1)
			d.Images = []domain.CabinImage{{Name: "front"}}
			return d
		}(), "images[0].fileName"},
		{"duplicate image file name", func() domain.CabinDraft {
			d := draft("x", 1, 1)
			d.Images = []domain.CabinImage{{Name: "a", FileName: "f.jpg"}, {Name: "b", FileName: "f.jpg"}}
			return d
		}(), "images"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.d)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
	if geo.calls != 0 {
		t.Fatalf("invalid drafts must not reach enrichment")
	}
}

func TestCreate_EnrichmentFailureIsWriteError(t *testing.T) {
	store := newMemStore()
	geo := &fakeGeo{err: &domain.GeoLookupError{Status: 503}}
	svc := app.NewCabinService(store, geo, nil, time.Minute)

	_, err := svc.Create(context.Background(), draft("Bivacco", 46, 10))
	if !errors.Is(err, domain.ErrWrite) || !errors.Is(err, domain.ErrGeoLookup) {
		t.Fatalf("expected WriteError wrapping GeoLookupError, got %v", err)
	}
	if store.mutations != 0 {
		t.Fatalf("nothing should be written")
	}
}

func TestCreate_StoreFailureIsWriteError(t *testing.T) {
	store := newMemStore()
	store.writeErr = errors.New("connection reset")
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)

	_, err := svc.Create(context.Background(), draft("Bivacco", 46, 10))
	var we *domain.WriteError
	if !errors.As(err, &we) || we.Op != "insert" {
		t.Fatalf("expected insert WriteError, got %v", err)
	}
}

func TestCreate_ImagesUpsertedByFileName(t *testing.T) {
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)
	ctx := context.Background()

	d := draft("Rifugio Curò", 46.0, 10.0)
	d.Images = []domain.CabinImage{
		{Name: "old", FileName: "a.jpg", OriginalURL: "https://img/a1.jpg"},
		{Name: "b", FileName: "b.jpg", OriginalURL: "https://img/b.jpg"},
	}
	if _, err := svc.Create(ctx, d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	d.Images = []domain.CabinImage{{Name: "new", FileName: "a.jpg", OriginalURL: "https://img/a2.jpg"}}
	c, err := svc.Create(ctx, d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(c.Images) != 2 {
		t.Fatalf("images = %d, want 2 (no duplication)", len(c.Images))
	}
	if c.Images[0].Name != "new" || c.Images[0].OriginalURL != "https://img/a2.jpg" {
		t.Fatalf("conflicting image should be overwritten: %+v", c.Images[0])
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)
	before := time.Now().UTC().Truncate(time.Microsecond)

	d := draft("Bivacco Plem", 46.1, 10.4)
	d.Amenities = []string{"toilet", "water", "fireplace"}
	d.IsFree = ptr(true)
	d.RequiresBooking = ptr(false)
	c, err := svc.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if strings.Join(got.Amenities, ",") != "toilet,water,fireplace" {
		t.Fatalf("amenity order lost: %v", got.Amenities)
	}
	if !got.IsFree || got.RequiresBooking {
		t.Fatalf("booleans not preserved: %+v", got)
	}
	if got.LastUpdated.Before(before) {
		t.Fatalf("timestamp %v earlier than write %v", got.LastUpdated, before)
	}
}

func decodePatch(t *testing.T, body string) domain.CabinPatch {
	t.Helper()
	var p domain.CabinPatch
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	return p
}

func createWithImages(t *testing.T, svc *app.CabinService) domain.Cabin {
	t.Helper()
	d := draft("Rifugio Tagliaferri", 46.06, 10.17)
	d.Images = []domain.CabinImage{{Name: "front", FileName: "front.jpg"}, {Name: "back", FileName: "back.jpg"}}
	c, err := svc.Create(context.Background(), d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func TestUpdate_Images(t *testing.T) {
	ctx := context.Background()

	t.Run("omitted keeps images", func(t *testing.T) {
		svc := app.NewCabinService(newMemStore(), fullGeo(), nil, time.Minute)
		c := createWithImages(t, svc)
		got, err := svc.Update(ctx, c.ID, decodePatch(t, `{"capacity": 12}`))
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if len(got.Images) != 2 || *got.Capacity != 12 {
			t.Fatalf("unexpected result: %+v", got)
		}
		stored, _ := svc.Get(ctx, c.ID)
		if len(stored.Images) != 2 {
			t.Fatalf("stored images = %d, want 2", len(stored.Images))
		}
	})

	t.Run("empty list deletes all", func(t *testing.T) {
		svc := app.NewCabinService(newMemStore(), fullGeo(), nil, time.Minute)
		c := createWithImages(t, svc)
		if _, err := svc.Update(ctx, c.ID, decodePatch(t, `{"images": []}`)); err != nil {
			t.Fatalf("Update: %v", err)
		}
		stored, _ := svc.Get(ctx, c.ID)
		if len(stored.Images) != 0 {
			t.Fatalf("stored images = %d, want 0", len(stored.Images))
		}
	})

	t.Run("list replaces", func(t *testing.T) {
		svc := app.NewCabinService(newMemStore(), fullGeo(), nil, time.Minute)
		c := createWithImages(t, svc)
		if _, err := svc.Update(ctx, c.ID, decodePatch(t, `{"images": [{"name":"hut","fileName":"hut.jpg"}]}`)); err != nil {
			t.Fatalf("Update: %v", err)
		}
		stored, _ := svc.Get(ctx, c.ID)
		if len(stored.Images) != 1 || stored.Images[0].FileName != "hut.jpg" {
			t.Fatalf("images = %+v", stored.Images)
		}
	})
}

func TestUpdate_MergeAndTimestamp(t *testing.T) {
	ctx := context.Background()
	svc := app.NewCabinService(newMemStore(), fullGeo(), nil, time.Minute)
	d := draft("Rifugio Coca", 46.07, 10.0)
	d.Email = ptr("coca@example.it")
	d.Phone = ptr("+39 0346 44035")
	c, _ := svc.Create(ctx, d)

	time.Sleep(2 * time.Millisecond)
	got, err := svc.Update(ctx, c.ID, decodePatch(t, `{"email": null, "isFree": true}`))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Email != nil {
		t.Fatalf("explicit null should clear email")
	}
	if got.Phone == nil || *got.Phone != "+39 0346 44035" {
		t.Fatalf("unset field should be kept")
	}
	if !got.IsFree || !got.LastUpdated.After(c.LastUpdated) {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestUpdate_Errors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)

	_, err := svc.Update(ctx, 404, decodePatch(t, `{"capacity": 1}`))
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.ID != 404 {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	c, _ := svc.Create(ctx, draft("Bivacco Baroni", 46.0, 10.1))
	for _, body := range []string{
		`{"name": null}`,
		`{"latitude": null}`,
		`{"longitude": 200}`,
		`{"images": [{"name": "a", "fileName": "f.jpg"}, {"name": "b", "fileName": "f.jpg"}]}`,
		`{"images": [{"name": "a", "fileName": " "}]}`,
	} {
		if _, err := svc.Update(ctx, c.ID, decodePatch(t, body)); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", body, err)
		}
	}
	if store.mutations != 1 {
		t.Fatalf("rejected patches must not write, mutations = %d", store.mutations)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)
	c := createWithImages(t, svc)

	before := store.mutations
	if err := svc.Delete(ctx, c.ID+100); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if store.mutations != before {
		t.Fatalf("missing id must not mutate the store")
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(store.rows) != 0 || len(store.images) != 0 {
		t.Fatalf("row and images should be gone: rows=%d images=%d", len(store.rows), len(store.images))
	}
}

func TestBulkImport_StopsAtFirstFailure(t *testing.T) {
	store := newMemStore()
	svc := app.NewCabinService(store, fullGeo(), nil, time.Minute)

	drafts := []domain.CabinDraft{
		draft("Bivacco A", 45.1, 7.1),
		draft("Bivacco B", 45.2, 7.2),
		{Name: ptr("broken")},
		draft("Bivacco D", 45.4, 7.4),
	}
	n, err := svc.BulkImport(context.Background(), drafts)
	if n != 2 {
		t.Fatalf("processed = %d, want 2", n)
	}
	if !errors.Is(err, domain.ErrValidation) || !strings.Contains(err.Error(), "entry 2") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(store.rows))
	}
}
