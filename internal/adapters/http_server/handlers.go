package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"free_cabins/internal/adapters/session"
	"free_cabins/internal/app"
	"free_cabins/internal/domain"
)

type Handlers struct {
	Cabins   *app.CabinService
	Importer *app.ImportService
	Admins   *app.AdminService
	Sessions *session.Manager
	Auth     Credentials

	Dev            bool
	LoginRateLimit int // attempts per minute per client IP
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const maxBody = 8 << 20

func (s *Server) MountHandlers(h *Handlers) {
	limit := h.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(15 * time.Second))
		r.Get("/api/cabins", h.listCabins)
		r.Get("/api/cabins/{id}", h.getCabin)
		r.With(httprate.LimitByIP(limit, time.Minute)).Post("/api/auth/login", h.login)
	})

	s.mux.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Group(func(r chi.Router) {
			r.Use(Timeout(60 * time.Second))
			r.Post("/api/auth/logout", h.logout)
			r.Post("/api/admin/cabins", h.createCabin)
			r.Put("/api/admin/cabins/{id}", h.updateCabin)
			r.Delete("/api/admin/cabins/{id}", h.deleteCabin)
			r.Put("/api/admin/users/{username}", h.addAdmin)
			r.Delete("/api/admin/users/{username}", h.removeAdmin)
		})
		r.Group(func(r chi.Router) {
			r.Use(Timeout(15 * time.Minute))
			r.Post("/api/admin/import/bulk", h.bulkImport)
			r.Post("/api/admin/import/cai", h.importCAI)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain error taxonomy onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrFetch):
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "the operation could not be completed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

func (h *Handlers) listCabins(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, h.Cabins.List(r.Context(), f))
}

func (h *Handlers) getCabin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.Cabins.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, c)
}

func (h *Handlers) createCabin(w http.ResponseWriter, r *http.Request) {
	var d domain.CabinDraft
	if !decodeBody(w, r, &d) {
		return
	}
	c, err := h.Cabins.Create(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("user", UserFrom(r.Context())).Int64("id", c.ID).Msg("admin saved cabin")
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) updateCabin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p domain.CabinPatch
	if !decodeBody(w, r, &p) {
		return
	}
	c, err := h.Cabins.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handlers) deleteCabin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Cabins.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResult struct {
	Processed int    `json:"processed"`
	Error     string `json:"error,omitempty"`
}

func (h *Handlers) bulkImport(w http.ResponseWriter, r *http.Request) {
	var drafts []domain.CabinDraft
	if !decodeBody(w, r, &drafts) {
		return
	}
	n, err := h.Cabins.BulkImport(r.Context(), drafts)
	if err != nil {
		log.Error().Err(err).Int("processed", n).Msg("bulk import aborted")
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrFetch):
			status = http.StatusBadGateway
		}
		writeJSON(w, status, importResult{Processed: n, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, importResult{Processed: n})
}

func (h *Handlers) importCAI(w http.ResponseWriter, r *http.Request) {
	n, err := h.Importer.ImportCAI(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResult{Processed: n})
}

func (h *Handlers) addAdmin(w http.ResponseWriter, r *http.Request) {
	u := chi.URLParam(r, "username")
	if err := h.Admins.Add(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("user", UserFrom(r.Context())).Str("admin", u).Msg("admin added")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) removeAdmin(w http.ResponseWriter, r *http.Request) {
	u := chi.URLParam(r, "username")
	if err := h.Admins.Remove(r.Context(), UserFrom(r.Context()), u); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("user", UserFrom(r.Context())).Str("admin", u).Msg("admin removed")
	w.WriteHeader(http.StatusNoContent)
}
