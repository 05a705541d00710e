//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	"free_cabins/internal/adapters/cai"
	"free_cabins/internal/adapters/geo"
	server "free_cabins/internal/adapters/http_server"
	"free_cabins/internal/adapters/memcache"
	redisad "free_cabins/internal/adapters/redis"
	"free_cabins/internal/adapters/session"
	"free_cabins/internal/app"
	"free_cabins/internal/domain"
	mysqlrepo "free_cabins/internal/storage/mysql"
)

// ---------- helpers ----------

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=cabins",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		"root", hostPort, "cabins")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// upstream fakes Nominatim, Open-Elevation and one CAI listing page.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/reverse", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":{"country":"Italia","state":"Lombardia","town":"Clusone"}}`))
	})
	mux.HandleFunc("/api/v1/lookup", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"elevation":1234.4}]}`))
	})
	mux.HandleFunc("/shelters/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":{"current_page":1,"next_page_url":null,"data":[
			{"id":1,"id_cai":555,"title":"RIFUGIO BRIOSCHI","geo":{"type":"Point","coordinates":[9.3925,45.9236]},
			 "updated_at":"2024-06-01T00:00:00Z",
			 "fields":[{"name":"type","value":"Rifugio custodito"},{"name":"posti_totali_service","value":"48"},
			           {"name":"acqua_in_rifugio_service","value":"1"}],
			 "media":[{"id":9,"original_url":"https://img/b.jpg","preview_url":"https://img/b-s.jpg","name":"b","file_name":"b.jpg"}]}
		]}}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

type client struct {
	base  string
	token string
}

func (c client) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, _ := http.NewRequest(method, c.base+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: c.token})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// ---------- the test ----------

func TestHTTP_EndToEnd_Cabins(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	if err := repo.EnsureSchema(ctx, "admin"); err != nil {
		t.Fatalf("schema: %v", err)
	}

	mr := miniredis.RunT(t)
	cache := redisad.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	up := upstream(t)
	enricher := geo.NewEnricher(geo.NewNominatim(up.URL, "e2e", 100), geo.NewElevation(up.URL))
	sessions, _ := session.NewManager("e2e-secret", time.Hour)

	srv := server.New(nil)
	srv.MountHandlers(&server.Handlers{
		Cabins:   app.NewCabinService(repo, enricher, cache, time.Minute),
		Importer: app.NewImportService(cai.New(up.URL, time.Millisecond), repo, cache),
		Admins:   app.NewAdminService(repo, memcache.NewTTL[string, bool]("admin", time.Minute)),
		Sessions: sessions,
		Auth:     server.Credentials{Username: "admin", Password: "pw"},
		Dev:      true,
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)

	token, _ := sessions.Issue("admin")
	c := client{base: ts.URL, token: token}

	// first run: empty store serves and persists the seed
	seed := decode[[]domain.Cabin](t, c.do(t, http.MethodGet, "/api/cabins", nil))
	if len(seed) != 1 || seed[0].LocalID != "cai-001" || seed[0].ID == 0 {
		t.Fatalf("seed = %+v", seed)
	}

	// create then merge a nearby duplicate
	resp := c.do(t, http.MethodPost, "/api/admin/cabins", map[string]any{
		"name": "Test Hut", "latitude": 46.2142, "longitude": 10.1779, "capacity": 4, "amenities": []string{},
		"images": []map[string]any{{"name": "front", "fileName": "front.jpg", "originalUrl": "https://img/f.jpg"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	first := decode[domain.Cabin](t, resp)
	if first.Municipality == nil || *first.Municipality != "Clusone" || first.Altitude == nil || *first.Altitude != 1234 {
		t.Fatalf("enrichment not applied: %+v", first)
	}

	second := decode[domain.Cabin](t, c.do(t, http.MethodPost, "/api/admin/cabins", map[string]any{
		"name": "Test Hut 2", "latitude": 46.21425, "longitude": 10.17795,
	}))
	if second.ID != first.ID || *second.Capacity != 4 || len(second.Images) != 1 {
		t.Fatalf("merge failed: first=%d second=%+v", first.ID, second)
	}

	// update without images keeps them; with [] clears them
	path := fmt.Sprintf("/api/admin/cabins/%d", first.ID)
	upd := decode[domain.Cabin](t, c.do(t, http.MethodPut, path, map[string]any{"isFree": true}))
	if !upd.IsFree || len(upd.Images) != 1 {
		t.Fatalf("update = %+v", upd)
	}
	c.do(t, http.MethodPut, path, map[string]any{"images": []any{}})
	got := decode[domain.Cabin](t, c.do(t, http.MethodGet, fmt.Sprintf("/api/cabins/%d", first.ID), nil))
	if len(got.Images) != 0 {
		t.Fatalf("images should be cleared: %+v", got.Images)
	}

	// CAI import is idempotent on local_id
	for i := 0; i < 2; i++ {
		res := decode[map[string]any](t, c.do(t, http.MethodPost, "/api/admin/import/cai", nil))
		if res["processed"] != float64(1) {
			t.Fatalf("import result = %v", res)
		}
	}
	list := decode[[]domain.Cabin](t, c.do(t, http.MethodGet, "/api/cabins?cabinType=manned+hut", nil))
	if len(list) != 1 || list[0].LocalID != "cai-555" || list[0].Name != "Rifugio Brioschi" || len(list[0].Images) != 1 {
		t.Fatalf("imported list = %+v", list)
	}

	// delete
	if resp := c.do(t, http.MethodDelete, path, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp := c.do(t, http.MethodDelete, path, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
	all := decode[[]domain.Cabin](t, c.do(t, http.MethodGet, "/api/cabins", nil))
	if len(all) != 2 {
		t.Fatalf("expected seed + imported cabin, got %d", len(all))
	}
}
