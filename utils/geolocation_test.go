package utils

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pnodeatlas/models"
)

// fakeStore is a minimal Store for resolver tests.
type fakeStore struct {
	entries map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]any)}
}

func (s *fakeStore) Get(key string) (any, bool) {
	v, ok := s.entries[key]
	return v, ok
}

func (s *fakeStore) Set(key string, value any, _ time.Duration) {
	s.entries[key] = value
}

func newTestResolver(t *testing.T, store Store, baseURL string) *GeoResolver {
	t.Helper()
	g, err := NewGeoResolver(store, "", time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewGeoResolver failed: %v", err)
	}
	g.BaseURL = baseURL
	return g
}

func TestGeoResolver_SuccessAndCaching(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/json/8.8.8.8" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("fields") == "" {
			t.Error("Expected fields query param")
		}
		fmt.Fprint(w, `{"status":"success","country":"United States","countryCode":"US","region":"VA","regionName":"Virginia","city":"Ashburn","lat":39.03,"lon":-77.5,"timezone":"America/New_York","isp":"Google LLC","query":"8.8.8.8"}`)
	}))
	defer server.Close()

	store := newFakeStore()
	g := newTestResolver(t, store, server.URL)

	loc := g.Resolve(context.Background(), "8.8.8.8")
	if loc == nil {
		t.Fatal("Expected location, got nil")
	}
	if loc.Country != "United States" || loc.CountryCode != "US" {
		t.Errorf("Wrong country: %s/%s", loc.Country, loc.CountryCode)
	}
	if loc.IP != "8.8.8.8" {
		t.Errorf("Expected canonical IP from query field, got %s", loc.IP)
	}

	// Second resolve is served from cache: identical result, no new HTTP call.
	loc2 := g.Resolve(context.Background(), "8.8.8.8")
	if loc2 != loc {
		t.Error("Expected the identical cached object")
	}
	if calls != 1 {
		t.Errorf("Expected exactly 1 upstream call, got %d", calls)
	}
}

func TestGeoResolver_APIFailStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"fail","query":"192.168.0.1"}`)
	}))
	defer server.Close()

	store := newFakeStore()
	g := newTestResolver(t, store, server.URL)

	if loc := g.Resolve(context.Background(), "192.168.0.1"); loc != nil {
		t.Errorf("Expected nil for fail status, got %+v", loc)
	}
	// Failures are never cached
	if len(store.entries) != 0 {
		t.Errorf("Expected no cache entries after failure, got %d", len(store.entries))
	}
}

func TestGeoResolver_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	g := newTestResolver(t, newFakeStore(), server.URL)

	if loc := g.Resolve(context.Background(), "1.2.3.4"); loc != nil {
		t.Error("Expected nil on 500 response")
	}
}

func TestGeoResolver_TransportError(t *testing.T) {
	g := newTestResolver(t, newFakeStore(), "http://127.0.0.1:1")

	if loc := g.Resolve(context.Background(), "1.2.3.4"); loc != nil {
		t.Error("Expected nil on connection failure")
	}
}

func TestGeoResolver_CacheHitSkipsNetwork(t *testing.T) {
	store := newFakeStore()
	cached := &models.GeoLocation{IP: "9.9.9.9", Country: "Switzerland", CountryCode: "CH"}
	store.Set("geo:9.9.9.9", cached, GeoTTL)

	// baseURL points nowhere; a network attempt would fail loudly.
	g := newTestResolver(t, store, "http://127.0.0.1:1")

	loc := g.Resolve(context.Background(), "9.9.9.9")
	if loc != cached {
		t.Error("Expected cached object without network call")
	}
}
