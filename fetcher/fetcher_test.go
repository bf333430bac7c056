package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f := New(nil, Config{
		PortalHost: "portal.invalid",
		Logger:     slog.New(slog.DiscardHandler),
	})
	return f
}

func TestValidateContent_ErrorMarkers(t *testing.T) {
	// WHAT: Known error phrases in otherwise well-formed HTML fail
	// validation.
	// WHY: Chrome happily renders a "404 Not Found" page; saving it would
	// destroy the snapshot.
	src := "<html><body><h1>404 Not Found</h1>" + strings.Repeat("<p>filler text here</p>", 20) + "</body></html>"
	if err := ValidateContent(src, 100); err == nil {
		t.Fatal("error page passed validation")
	}
}

func TestValidateContent_TooShort(t *testing.T) {
	// WHAT: Pages whose visible text is below the minimum fail validation;
	// script bodies do not count as text.
	// WHY: A loading shell full of JavaScript is not a rendered page.
	src := "<html><body><div>hi</div><script>" + strings.Repeat("var x = 1;", 100) + "</script></body></html>"
	if err := ValidateContent(src, 100); err == nil {
		t.Fatal("near-empty page passed validation")
	}
}

func TestValidateContent_OK(t *testing.T) {
	// WHAT: A page with enough visible text passes.
	// WHY: The happy path must not false-positive.
	src := "<html><body><p>" + strings.Repeat("documentation sentence ", 20) + "</p></body></html>"
	if err := ValidateContent(src, 100); err != nil {
		t.Fatalf("valid page rejected: %v", err)
	}
}

func TestFetchHTTP_WrapsJSON(t *testing.T) {
	// WHAT: JSON responses come back wrapped in an escaped <pre> document.
	// WHY: The extractor consumes HTML; the wrapper carries the payload
	// through without letting it inject markup.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"<ok>"}`))
	}))
	defer srv.Close()

	src, err := testFetcher(t).fetchHTTP(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src, "<pre>") {
		t.Errorf("JSON not wrapped in pre: %q", src)
	}
	if strings.Contains(src, "<ok>") {
		t.Errorf("payload markup not escaped: %q", src)
	}
}

func TestFetchHTTP_PassesHTMLThrough(t *testing.T) {
	// WHAT: text/html responses are returned as-is.
	// WHY: Regular pages need no wrapper.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>doc</p></body></html>"))
	}))
	defer srv.Close()

	src, err := testFetcher(t).fetchHTTP(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src, "<p>doc</p>") {
		t.Errorf("body altered: %q", src)
	}
}

func TestFetchHTTP_NonOKStatus(t *testing.T) {
	// WHAT: Non-200 responses are errors.
	// WHY: A 500 body must never become a snapshot.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testFetcher(t).fetchHTTP(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestFetchPage_HTTPPathForNonPortalURL(t *testing.T) {
	// WHAT: URLs outside the portal host resolve over plain HTTP without
	// touching the browser.
	// WHY: API endpoints and static mirrors don't need Chrome.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>static page</p></body></html>"))
	}))
	defer srv.Close()

	src, err := testFetcher(t).FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src, "static page") {
		t.Errorf("unexpected content: %q", src)
	}
}
