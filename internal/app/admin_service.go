package app

import (
	"context"
	"fmt"

	"testyourself-core/internal/domain"
)

// AdminService gates catalog and registry mutations behind an admin check.
type AdminService struct {
	auth    Authorizer
	catalog *CatalogService
	sync    *RegistrySync
}

func NewAdminService(auth Authorizer, catalog *CatalogService, sync *RegistrySync) *AdminService {
	return &AdminService{auth: auth, catalog: catalog, sync: sync}
}

func (a *AdminService) authorize(ctx context.Context, token string) error {
	return a.RequireRole(ctx, token, domain.RoleAdmin)
}

// RequireRole fails with ErrPermissionDenied unless token carries one of roles.
func (a *AdminService) RequireRole(ctx context.Context, token string, roles ...string) error {
	if token == "" {
		return domain.ErrPermissionDenied
	}
	ok, err := a.auth.HasRole(ctx, token, roles...)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	return nil
}

// CreateCatalogEntry creates a catalog entry for an admin caller.
func (a *AdminService) CreateCatalogEntry(ctx context.Context, token, name string) (domain.CatalogEntry, error) {
	if err := a.authorize(ctx, token); err != nil {
		return domain.CatalogEntry{}, err
	}
	return a.catalog.CreateEntry(ctx, name)
}

// EnsureInstance resolves or creates a course instance for an admin caller.
func (a *AdminService) EnsureInstance(ctx context.Context, token string, req EnsureInstanceRequest) (string, error) {
	if err := a.authorize(ctx, token); err != nil {
		return "", err
	}
	return a.catalog.EnsureInstance(ctx, req)
}

// Sync runs a registry sync for an admin caller.
func (a *AdminService) Sync(ctx context.Context, token string, names []string, dryRun bool) (SyncReport, error) {
	if err := a.authorize(ctx, token); err != nil {
		return SyncReport{}, err
	}
	return a.sync.Sync(ctx, names, dryRun), nil
}
