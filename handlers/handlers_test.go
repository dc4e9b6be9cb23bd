package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"pnodeatlas/config"
	"pnodeatlas/metrics"
	"pnodeatlas/models"
	"pnodeatlas/services"
	"pnodeatlas/utils"
)

type stubSource struct {
	nodes []models.ClusterNode
	err   error
}

func (s *stubSource) GetClusterNodes(context.Context) ([]models.ClusterNode, error) {
	return s.nodes, s.err
}

type stubGeo struct {
	locations map[string]*models.GeoLocation
}

func (s *stubGeo) Resolve(_ context.Context, ip string) *models.GeoLocation {
	return s.locations[ip]
}

func testHandler(t *testing.T, source services.RosterSource, geo services.GeoLookup) *Handler {
	t.Helper()
	cfg := &config.Config{RPC: config.RPCConfig{Endpoint: "http://example.invalid"}}
	cache := services.NewCache()
	m := metrics.New(prometheus.NewRegistry())
	history := services.NewHistory(cache)
	pipeline := services.NewPipeline(source, services.NewEnricher(geo, zerolog.Nop()), cache, history, m, zerolog.Nop())
	return NewHandler(cfg, pipeline, nil, history, nil, zerolog.Nop())
}

func doRequest(t *testing.T, h echo.HandlerFunc, target string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	return rec, envelope
}

func TestGetPNodes(t *testing.T) {
	source := &stubSource{nodes: []models.ClusterNode{
		{Pubkey: "BBBB2222CCCC3333", Gossip: "5.6.7.8:8001"},
		{Pubkey: "AAAA1111BBBB2222", Gossip: "1.2.3.4:8001", RPC: "1.2.3.4:8899"},
	}}
	h := testHandler(t, source, &stubGeo{})

	rec, envelope := doRequest(t, h.GetPNodes, "/api/pnodes")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !envelope.Success {
		t.Fatalf("Expected success envelope, got error %q", envelope.Error)
	}

	data, _ := json.Marshal(envelope.Data)
	var result models.PNodesResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}

	if len(result.Nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(result.Nodes))
	}
	// Deterministic ordering by pubkey
	if result.Nodes[0].Pubkey != "AAAA1111BBBB2222" {
		t.Errorf("Expected sorted output, got %s first", result.Nodes[0].Pubkey)
	}
	if result.Stats.TotalNodes != 2 || result.Stats.OnlineNodes != 1 {
		t.Errorf("Wrong stats: %+v", result.Stats)
	}
}

func TestGetPNodes_UpstreamFailure(t *testing.T) {
	h := testHandler(t, &stubSource{err: errors.New("rpc unreachable")}, &stubGeo{})

	rec, envelope := doRequest(t, h.GetPNodes, "/api/pnodes")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	if envelope.Success {
		t.Error("Expected failure envelope")
	}
	if envelope.Error == "" {
		t.Error("Expected error message in envelope")
	}
}

func TestGetStats(t *testing.T) {
	source := &stubSource{nodes: []models.ClusterNode{
		{Pubkey: "AAAA1111BBBB2222", Gossip: "1.2.3.4:8001", RPC: "1.2.3.4:8899"},
		{Pubkey: "CCCC3333DDDD4444", Gossip: "5.6.7.8:8001"},
	}}
	geo := &stubGeo{locations: map[string]*models.GeoLocation{
		"1.2.3.4": {Country: "United States", CountryCode: "US"},
	}}
	h := testHandler(t, source, geo)

	rec, envelope := doRequest(t, h.GetStats, "/api/stats")

	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("Expected success, got %d / %q", rec.Code, envelope.Error)
	}

	data, _ := json.Marshal(envelope.Data)
	var result models.StatsResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}

	if result.NetworkStats.TotalNodes != 2 {
		t.Errorf("Expected 2 total, got %d", result.NetworkStats.TotalNodes)
	}
	if len(result.RegionStats) != 2 { // US + Unknown
		t.Errorf("Expected 2 regions, got %d", len(result.RegionStats))
	}
	if len(result.TopCountries) != len(result.RegionStats) {
		t.Errorf("Expected topCountries to mirror small region list")
	}
}

func TestGetGeo_MissingIP(t *testing.T) {
	h := testHandler(t, &stubSource{}, &stubGeo{})
	// Geo endpoint needs a real resolver; with a nil resolver the missing-ip
	// check must still fire first.
	rec, envelope := doRequest(t, h.GetGeo, "/api/geo")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if envelope.Success {
		t.Error("Expected failure envelope")
	}
}

func TestGetGeo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","country":"Germany","countryCode":"DE","query":"5.6.7.8"}`)
	}))
	defer server.Close()

	geo, err := utils.NewGeoResolver(services.NewCache(), "", time.Second, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	geo.BaseURL = server.URL

	h := testHandler(t, &stubSource{}, &stubGeo{})
	h.Geo = geo

	rec, envelope := doRequest(t, h.GetGeo, "/api/geo?ip=5.6.7.8")

	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("Expected success, got %d / %q", rec.Code, envelope.Error)
	}

	data, _ := json.Marshal(envelope.Data)
	var loc models.GeoLocation
	json.Unmarshal(data, &loc)
	if loc.CountryCode != "DE" {
		t.Errorf("Wrong location: %+v", loc)
	}
}

func TestGetGeo_Unresolvable(t *testing.T) {
	geo, err := utils.NewGeoResolver(services.NewCache(), "", time.Second, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	geo.BaseURL = "http://127.0.0.1:1"

	h := testHandler(t, &stubSource{}, &stubGeo{})
	h.Geo = geo

	rec, envelope := doRequest(t, h.GetGeo, "/api/geo?ip=1.2.3.4")

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if envelope.Success {
		t.Error("Expected failure envelope")
	}
}

func TestGetHistory(t *testing.T) {
	h := testHandler(t, &stubSource{}, &stubGeo{})
	h.History.Record(models.NetworkStats{TotalNodes: 3, OnlineNodes: 2, Timestamp: time.Now()})

	rec, envelope := doRequest(t, h.GetHistory, "/api/history?hours=1")

	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("Expected success, got %d", rec.Code)
	}

	data, _ := json.Marshal(envelope.Data)
	var points []models.HistoryPoint
	json.Unmarshal(data, &points)
	if len(points) != 1 || points[0].TotalNodes != 3 {
		t.Errorf("Wrong history payload: %+v", points)
	}
}

func TestGetHealth(t *testing.T) {
	h := testHandler(t, &stubSource{}, &stubGeo{})

	rec, envelope := doRequest(t, h.GetHealth, "/health")

	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("Expected healthy, got %d", rec.Code)
	}
}
