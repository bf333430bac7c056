package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/docveille/compare"
	"github.com/hazyhaar/docveille/dbopen"
	"github.com/hazyhaar/docveille/snapshot"
)

func testServer(t *testing.T, authHash string) (*Server, *snapshot.Store) {
	t.Helper()
	store := snapshot.NewStore(dbopen.OpenMemory(t, dbopen.WithSchema(snapshot.Schema)))
	cfg := testConfig(ManualPage{Name: "alpha", URL: "https://x/a.html"})
	svc := NewService(cfg, store, &fakeFetcher{pages: map[string]string{
		"https://x/a.html": docHTML("Alpha", "Choose Save to persist changes."),
	}}, nil, nil)
	return NewServer(svc, store, authHash, nil), store
}

func TestHealth(t *testing.T) {
	// WHAT: /health answers 200 with the running flag.
	srv, _ := testServer(t, "")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["running"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestLatestRun_EmptyThenRecorded(t *testing.T) {
	// WHAT: /runs/latest is 404 before any cycle and 200 after.
	srv, store := testServer(t, "")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	now := time.Now()
	if _, err := store.RecordRun(context.Background(), &snapshot.RunSummary{
		StartedAt: now, FinishedAt: now, Status: "Success",
		PagesChecked: 3, PagesModified: 1, MaxSeverity: compare.SeverityHigh,
	}); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"max_severity":"HIGH"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTriggerRun_Accepted(t *testing.T) {
	// WHAT: POST /run starts a cycle and answers 202 immediately.
	srv, store := testServer(t, "")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}

	// The triggered cycle is asynchronous; wait for it to record.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := store.LatestRun(context.Background()); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("triggered run never recorded")
}

func TestTriggerRun_Auth(t *testing.T) {
	// WHAT: With an auth hash configured, /run requires the matching
	// bearer token; read endpoints stay open.
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	srv, _ := testServer(t, string(hash))
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/run", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Errorf("good token: status = %d, want 202", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health behind auth: status = %d", rec.Code)
	}
}
