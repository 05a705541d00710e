package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"free_cabins/internal/adapters/session"
)

// Credentials is the single configured login. When PasswordHash is set it
// is a bcrypt hash and Password is ignored.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

func (c Credentials) check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	var passOK bool
	if c.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK && c.Username != ""
}

type ctxKey struct{}

// UserFrom returns the authenticated username stored by RequireAdmin.
func UserFrom(ctx context.Context) string {
	u, _ := ctx.Value(ctxKey{}).(string)
	return u
}

// RequireAdmin accepts requests carrying a valid session cookie whose user
// is on the admin allowlist.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(session.CookieName)
		if err != nil || ck.Value == "" {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		user, err := h.Sessions.Verify(ck.Value)
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired session")
			return
		}
		ok, err := h.Admins.IsAdmin(r.Context(), user)
		if err != nil {
			log.Error().Err(err).Str("context", "RequireAdmin").Msg("admin lookup failed")
			writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "admin lookup failed")
			return
		}
		if !ok {
			writeProblem(w, http.StatusForbidden, "Forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected {\"username\",\"password\"}")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if !h.Auth.check(req.Username, req.Password) {
		log.Warn().Str("username", req.Username).Msg("login rejected")
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	token, err := h.Sessions.Issue(req.Username)
	if err != nil {
		log.Error().Err(err).Str("context", "login").Msg("issue session failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not create session")
		return
	}
	isAdmin, err := h.Admins.IsAdmin(r.Context(), req.Username)
	if err != nil {
		log.Error().Err(err).Str("context", "login").Msg("admin lookup failed")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   !h.Dev,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Username: req.Username, IsAdmin: isAdmin})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.Dev,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
