package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/autollama/ingestor/internal/ingesterr"
)

func TestFetcherGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello from server"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	body, ct, err := f.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "hello from server" {
		t.Fatalf("unexpected body: %q", body)
	}
	if ct != "text/plain" {
		t.Fatalf("unexpected content type: %q", ct)
	}
}

func TestFetcherGetRejectsNonHTTPURL(t *testing.T) {
	f := NewFetcher(time.Second)
	_, _, err := f.Get(context.Background(), "ftp://example.com/file")
	if ingesterr.KindOf(err) != ingesterr.Validation {
		t.Fatalf("expected Validation for a non-HTTP URL, got %s", ingesterr.KindOf(err))
	}
}

func TestFetcherGetClassifies4xxAsValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, _, err := f.Get(context.Background(), srv.URL)
	if ingesterr.KindOf(err) != ingesterr.Validation {
		t.Fatalf("expected Validation for 404, got %s", ingesterr.KindOf(err))
	}
}

func TestFetcherGetRetriesThenClassifies5xxAsNetworkTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, _, err := f.Get(context.Background(), srv.URL)
	if ingesterr.KindOf(err) != ingesterr.NetworkTransient {
		t.Fatalf("expected NetworkTransient for repeated 502s, got %s", ingesterr.KindOf(err))
	}
}

func TestIsHTTPURL(t *testing.T) {
	cases := map[string]bool{
		"http://example.com":  true,
		"https://example.com": true,
		"ftp://example.com":   false,
		"not a url":           false,
		"http":                false,
	}
	for u, want := range cases {
		if got := isHTTPURL(u); got != want {
			t.Errorf("isHTTPURL(%q) = %v, want %v", u, got, want)
		}
	}
}
