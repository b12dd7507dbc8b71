package http

import (
	"context"
	"testing"
	"time"

	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
	"testyourself-core/internal/infra/memory"
	"testyourself-core/internal/security"
)

type testEnv struct {
	docs        *memory.DocumentStore
	leaderboard *app.LeaderboardService
	admin       *app.AdminService
	catalog     *app.CatalogService
	auth        *security.JWTAuthorizer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	docs := memory.NewDocumentStore()
	writer := app.NewBatchWriter(docs, nil)
	profiles := memory.NewStaticProfiles(map[string]domain.PublicProfile{
		"u1": {DisplayName: "Asha"},
	})
	leaderboard := app.NewLeaderboardService(docs, writer, profiles, memory.NewRankingIndex(), app.NewStandingsFeed(), nil)
	catalog := app.NewCatalogService(docs, nil)
	registry := app.NewRegistryStore(docs, writer, 0, nil)
	auth := security.NewJWTAuthorizer([]byte("test-secret"))
	return &testEnv{
		docs:        docs,
		leaderboard: leaderboard,
		admin:       app.NewAdminService(auth, catalog, app.NewRegistrySync(registry, writer, nil)),
		catalog:     catalog,
		auth:        auth,
	}
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := e.auth.GenerateToken("someone", role, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func (e *testEnv) catalogEntry(t *testing.T, name string) domain.CatalogEntry {
	t.Helper()
	entry, err := e.catalog.CreateEntry(context.Background(), name)
	if err != nil {
		t.Fatalf("create catalog entry: %v", err)
	}
	return entry
}
