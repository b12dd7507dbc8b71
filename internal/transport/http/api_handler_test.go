package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
	"testyourself-core/internal/security"
)

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, NewRouter(env.leaderboard, env.admin, nil), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response %d %q", rec.Code, rec.Body.String())
	}
}

func TestSubmitResultThenStandings(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.leaderboard, env.admin, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/results", env.token(t, security.RoleService), domain.QuizResult{UID: "u1", Score: 70, State: "KA"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/leaderboards/state:KA", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var standings domain.Standings
	if err := json.Unmarshal(rec.Body.Bytes(), &standings); err != nil {
		t.Fatalf("decode standings: %v", err)
	}
	if len(standings.Entries) != 1 || standings.Entries[0].UID != "u1" || standings.Entries[0].Score != 70 {
		t.Fatalf("unexpected standings %+v", standings)
	}
}

func TestSubmitResultRejectsMissingUID(t *testing.T) {
	env := newTestEnv(t)
	rec := doRequest(t, NewRouter(env.leaderboard, env.admin, nil), http.MethodPost, "/api/v1/results", env.token(t, security.RoleService), map[string]any{"score": 10})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitResultRequiresServiceRole(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.leaderboard, env.admin, nil)
	result := domain.QuizResult{UID: "u1", Score: 100, State: "KA"}

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"student", env.token(t, "student")},
		{"garbage", "not-a-jwt"},
	}
	for _, tc := range cases {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/results", tc.token, result)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s token: expected 403, got %d", tc.name, rec.Code)
		}
	}
	if n := env.docs.Count(app.LeaderboardCollection); n != 0 {
		t.Fatalf("rejected submissions must not write, found %d leaderboard docs", n)
	}

	rec := doRequest(t, router, http.MethodPost, "/api/v1/results", env.token(t, security.RoleAdmin), result)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("admin token: expected 202, got %d", rec.Code)
	}
	if env.docs.Count(app.LeaderboardCollection) == 0 {
		t.Fatalf("accepted submission should write leaderboard docs")
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.leaderboard, env.admin, nil)

	cases := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"student", env.token(t, "student")},
		{"garbage", "not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/catalog", tc.token, map[string]string{"name": "Physics"})
			if rec.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rec.Code)
			}
		})
	}
	if env.docs.Count(app.CatalogCollection) != 0 {
		t.Fatalf("expected no catalog writes for rejected callers")
	}
}

func TestCreateCatalogEntry(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.leaderboard, env.admin, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/catalog", env.token(t, security.RoleAdmin), map[string]string{"name": "Class 10 Physics"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var entry domain.CatalogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.ID == "" || entry.Slug != "class-10-physics" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestEnsureInstanceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.leaderboard, env.admin, nil)
	admin := env.token(t, security.RoleAdmin)
	entry := env.catalogEntry(t, "Chemistry")

	t.Run("placeholder board with exam resolves", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/instances", admin, map[string]any{
			"catalogId": entry.ID, "medium": "english", "board": "All Boards", "examId": "neet",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp instanceResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := app.InstanceID(entry.ID, domain.DeliveryContext{Medium: "english", ExamID: "neet"})
		if resp.ID != want {
			t.Fatalf("expected id %s, got %s", want, resp.ID)
		}
	})

	t.Run("both board and exam is invalid", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/instances", admin, map[string]any{
			"catalogId": entry.ID, "medium": "english", "board": "cbse", "examId": "neet",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown catalog entry", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/instances", admin, map[string]any{
			"catalogId": "missing", "medium": "english", "board": "cbse",
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestSyncRegistryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(env.leaderboard, env.admin, nil)
	ctx := context.Background()

	err := env.docs.Set(ctx, app.RegistryCollection, "boards", map[string]any{
		"items":  []any{map[string]any{"id": "cbse", "name": "CBSE"}},
		"chunks": 1,
	}, false)
	if err != nil {
		t.Fatalf("seed registry: %v", err)
	}

	rec := doRequest(t, router, http.MethodPost, "/api/v1/admin/registry/sync", env.token(t, security.RoleAdmin), map[string]any{
		"collections": []string{"boards", "not_allowed"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report app.SyncReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.OK || report.Results["boards"] != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, ok := report.Results["not_allowed"]; ok {
		t.Fatalf("unknown collection should not be reported")
	}
	if _, err := env.docs.Get(ctx, "boards", "cbse"); err != nil {
		t.Fatalf("expected synced board document: %v", err)
	}
}

func TestStatusFromError(t *testing.T) {
	cases := map[error]int{
		domain.ErrPermissionDenied: http.StatusForbidden,
		domain.ErrInvalidContext:   http.StatusBadRequest,
		domain.ErrCatalogNotFound:  http.StatusNotFound,
		domain.ErrStoreUnavailable: http.StatusServiceUnavailable,
		context.Canceled:           http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFromError(err); got != want {
			t.Fatalf("statusFromError(%v) = %d, want %d", err, got, want)
		}
	}
}
