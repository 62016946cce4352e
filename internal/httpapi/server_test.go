package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/davprobe/internal/domain"
	apimw "github.com/hamed0406/davprobe/internal/httpapi/middleware"
	"github.com/hamed0406/davprobe/internal/repo"
	"github.com/hamed0406/davprobe/internal/repo/memory"
)

// ---- test helpers ----

type fakeRunner struct {
	store *memory.Store
	calls int
}

func (f *fakeRunner) CheckNow(ctx context.Context, id domain.TargetID) (*domain.CheckResult, error) {
	if id != "main" {
		return nil, repo.ErrNotFound
	}
	f.calls++
	cr := &domain.CheckResult{TargetID: id, Status: "OK", LatencyMS: 12.5, CheckedAt: time.Now().UTC()}
	return cr, f.store.Append(ctx, cr)
}

func setupRouter(t *testing.T) (http.Handler, *fakeRunner) {
	t.Helper()
	store := memory.New(0)
	ctx := context.Background()
	_ = store.Add(ctx, &domain.Target{ID: "main", Kind: "caldav", Server: "dav.example.com", User: "jane"})
	_ = store.Append(ctx, &domain.CheckResult{TargetID: "main", Status: "WARNING", CheckedAt: time.Now().UTC()})

	runner := &fakeRunner{store: store}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("davprobe_status 0\n"))
	})
	srv := NewServer(zap.NewNop(), store, store, runner, metrics)

	// very high rate limits to avoid flakiness in tests
	return srv.Router(RouterOptions{
		Keys:        apimw.Keys{Public: []string{"pub_test"}, Admin: []string{"adm_test"}},
		PublicRPM:   10_000,
		PublicBurst: 10_000,
		AdminRPM:    10_000,
		AdminBurst:  10_000,
	}), runner
}

func do(t *testing.T, h http.Handler, method, path, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---- tests ----

func TestHealthAndMetricsAreOpen(t *testing.T) {
	h, _ := setupRouter(t)
	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != 200 {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestReadRoutes_RequireKey(t *testing.T) {
	h, _ := setupRouter(t)

	if rec := do(t, h, http.MethodGet, "/api/targets", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/targets", "pub_test")
	if rec.Code != 200 {
		t.Fatalf("list targets: %d", rec.Code)
	}
	var targets []domain.Target
	if err := json.NewDecoder(rec.Body).Decode(&targets); err != nil || len(targets) != 1 || targets[0].ID != "main" {
		t.Fatalf("unexpected targets %+v (%v)", targets, err)
	}

	rec = do(t, h, http.MethodGet, "/api/results", "pub_test")
	var rows []repo.LatestRow
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil || len(rows) != 1 || rows[0].Result.Status != "WARNING" {
		t.Fatalf("unexpected latest %+v (%v)", rows, err)
	}

	rec = do(t, h, http.MethodGet, "/api/targets/main/results?limit=5", "adm_test")
	if rec.Code != 200 {
		t.Fatalf("history with admin key: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/targets/main/results?limit=x", "pub_test"); rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for bad limit, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/targets/nope/results", "pub_test"); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 for unknown target, got %d", rec.Code)
	}
}

func TestCheckNow_AdminOnly(t *testing.T) {
	h, runner := setupRouter(t)

	if rec := do(t, h, http.MethodPost, "/api/targets/main/check", "pub_test"); rec.Code != http.StatusForbidden {
		t.Fatalf("public key must not trigger checks, got %d", rec.Code)
	}
	if runner.calls != 0 {
		t.Fatalf("runner should not have been called")
	}

	rec := do(t, h, http.MethodPost, "/api/targets/main/check", "adm_test")
	if rec.Code != 200 {
		t.Fatalf("check now: %d %s", rec.Code, rec.Body.String())
	}
	var cr domain.CheckResult
	if err := json.NewDecoder(rec.Body).Decode(&cr); err != nil || cr.Status != "OK" {
		t.Fatalf("unexpected result %+v (%v)", cr, err)
	}

	if rec := do(t, h, http.MethodPost, "/api/targets/nope/check", "adm_test"); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}
}
