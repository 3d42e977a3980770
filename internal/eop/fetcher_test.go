package eop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestFetcherBodyLimit verifies that responses exceeding the 50 MB limit
// return an error instead of consuming unbounded memory.
func TestFetcherBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		chunk := strings.Repeat("A", 1024*1024)
		for i := 0; i < 52; i++ {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	_, err := fetcher.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for oversized response, got nil")
	}
	if !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("expected body limit error, got: %v", err)
	}
}

func TestFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(finals2000A))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	data, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != finals2000A {
		t.Errorf("body mismatch: got %d bytes, want %d", len(data), len(finals2000A))
	}

	d, err := LoadBytes(data, testLogger)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if d.Model() != ModelIAU2000A {
		t.Errorf("model = %v, want iau2000a", d.Model())
	}
}

func TestFetcherHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	_, err := fetcher.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
}

func TestFetcherCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(server.URL, testLogger).Fetch(ctx)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestDefaultURL(t *testing.T) {
	if DefaultURL(ModelIAU1980) != DefaultIAU1980URL {
		t.Error("IAU1980 default URL mismatch")
	}
	if DefaultURL(ModelIAU2000A) != DefaultIAU2000AURL {
		t.Error("IAU2000A default URL mismatch")
	}
}
