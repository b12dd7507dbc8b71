package app_test

import (
	"context"
	"errors"
	"testing"

	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
	"testyourself-core/internal/infra/memory"
)

type stubAuthorizer map[string]string

func (s stubAuthorizer) IsAdmin(ctx context.Context, token string) (bool, error) {
	return s.HasRole(ctx, token, domain.RoleAdmin)
}

func (s stubAuthorizer) HasRole(_ context.Context, token string, roles ...string) (bool, error) {
	role, ok := s[token]
	if !ok {
		return false, errors.New("unknown token")
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func TestAdminServiceRejectsNonAdmins(t *testing.T) {
	docs := memory.NewDocumentStore()
	writer := app.NewBatchWriter(docs, nil)
	catalog := app.NewCatalogService(docs, nil)
	admin := app.NewAdminService(
		stubAuthorizer{"admin-token": domain.RoleAdmin, "student-token": "student", "service-token": domain.RoleService},
		catalog,
		app.NewRegistrySync(app.NewRegistryStore(docs, writer, 0, nil), writer, nil),
	)
	ctx := context.Background()

	for _, token := range []string{"", "student-token", "service-token", "forged"} {
		if _, err := admin.CreateCatalogEntry(ctx, token, "Biology"); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("token %q: expected permission denied, got %v", token, err)
		}
		if _, err := admin.Sync(ctx, token, []string{"boards"}, false); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("token %q: expected permission denied on sync, got %v", token, err)
		}
	}
	if docs.Count(app.CatalogCollection) != 0 {
		t.Fatalf("rejected callers must not write")
	}

	entry, err := admin.CreateCatalogEntry(ctx, "admin-token", "Biology")
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	id, err := admin.EnsureInstance(ctx, "admin-token", app.EnsureInstanceRequest{
		CatalogID: entry.ID,
		Context:   domain.DeliveryContext{Medium: "english", Board: "cbse"},
	})
	if err != nil || id == "" {
		t.Fatalf("admin ensure: id=%q err=%v", id, err)
	}
}

func TestRequireRoleAcceptsAnyListedRole(t *testing.T) {
	admin := app.NewAdminService(
		stubAuthorizer{"admin-token": domain.RoleAdmin, "student-token": "student", "service-token": domain.RoleService},
		nil,
		nil,
	)
	ctx := context.Background()

	for _, token := range []string{"service-token", "admin-token"} {
		if err := admin.RequireRole(ctx, token, domain.RoleService, domain.RoleAdmin); err != nil {
			t.Fatalf("token %q: %v", token, err)
		}
	}
	for _, token := range []string{"", "student-token", "forged"} {
		if err := admin.RequireRole(ctx, token, domain.RoleService, domain.RoleAdmin); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("token %q: expected permission denied, got %v", token, err)
		}
	}
}
