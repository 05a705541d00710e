package app

import (
	"context"
	"strings"

	"free_cabins/internal/domain"
)

// identityCache is the process-local view of the admin allowlist.
type identityCache interface {
	Get(k string) (bool, bool)
	Set(k string, v bool)
	Delete(k string)
}

type AdminService struct {
	store domain.AdminStore
	cache identityCache
}

func NewAdminService(store domain.AdminStore, cache identityCache) *AdminService {
	return &AdminService{store: store, cache: cache}
}

func (s *AdminService) IsAdmin(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}
	if v, ok := s.cache.Get(username); ok {
		return v, nil
	}
	ok, err := s.store.IsAdmin(ctx, username)
	if err != nil {
		return false, err
	}
	s.cache.Set(username, ok)
	return ok, nil
}

func (s *AdminService) Add(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &domain.ValidationError{Field: "username", Reason: "is required"}
	}
	if err := s.store.AddAdmin(ctx, username); err != nil {
		return &domain.WriteError{Op: "add admin", Err: err}
	}
	s.cache.Set(username, true)
	return nil
}

// Remove drops username from the allowlist. actor is the admin making the
// change; an admin cannot remove themselves.
func (s *AdminService) Remove(ctx context.Context, actor, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &domain.ValidationError{Field: "username", Reason: "is required"}
	}
	if username == strings.TrimSpace(actor) {
		return &domain.ValidationError{Field: "username", Reason: "cannot remove the signed-in admin"}
	}
	if err := s.store.RemoveAdmin(ctx, username); err != nil {
		return &domain.WriteError{Op: "remove admin", Err: err}
	}
	s.cache.Delete(username)
	return nil
}
