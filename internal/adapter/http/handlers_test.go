package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	emhttp "github.com/Ramsi-K/EdgeMind/internal/adapter/http"
	"github.com/Ramsi-K/EdgeMind/internal/adapter/ws"
	"github.com/Ramsi-K/EdgeMind/internal/config"
	"github.com/Ramsi-K/EdgeMind/internal/domain/site"
	"github.com/Ramsi-K/EdgeMind/internal/service"
)

// newTestServer wires real services over the default three-site topology.
// No participants and no executor: rounds that trigger fall back.
func newTestServer(t *testing.T) (*httptest.Server, *service.SiteRegistry, *service.ThresholdMonitor) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Swarm.Deadline = 200 * time.Millisecond

	registry := service.NewSiteRegistry(cfg.Sites)
	monitor := service.NewThresholdMonitor(cfg.Thresholds)
	history := service.NewHistory(cfg.History.Cap)
	hub := ws.NewHub()
	coordinator := service.NewSwarmCoordinator(cfg.Swarm, registry, monitor, nil, nil, history, hub, nil)
	ingestor := service.NewIngestor(registry, monitor, history, hub, nil, nil, time.Second)

	handlers := &emhttp.Handlers{
		Registry:    registry,
		Monitor:     monitor,
		History:     history,
		Coordinator: coordinator,
		Ingestor:    ingestor,
		Hub:         hub,
	}

	r := chi.NewRouter()
	emhttp.MountRoutes(r, handlers)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry, monitor
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var body map[string]any
	if status := getJSON(t, srv.URL+"/health", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestListSitesAndGetSite(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var sites []site.Site
	if status := getJSON(t, srv.URL+"/api/sites", &sites); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(sites) != 3 {
		t.Fatalf("got %d sites, want 3", len(sites))
	}
	if sites[0].ID != "MEC-A" {
		t.Errorf("sites[0] = %s, want MEC-A (stable order)", sites[0].ID)
	}

	var one site.Site
	if status := getJSON(t, srv.URL+"/api/sites/MEC-B", &one); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if one.ID != "MEC-B" {
		t.Errorf("site = %+v", one)
	}

	if status := getJSON(t, srv.URL+"/api/sites/nope", nil); status != http.StatusNotFound {
		t.Errorf("unknown site status = %d, want 404", status)
	}
}

func TestPushSample(t *testing.T) {
	srv, registry, monitor := newTestServer(t)

	sample := map[string]any{
		"cpu_percent":      95.0,
		"gpu_percent":      30.0,
		"memory_percent":   40.0,
		"queue_depth":      5,
		"response_time_ms": 35.0,
	}

	var body struct {
		Count int `json:"count"`
	}
	status := postJSON(t, srv.URL+"/api/sites/MEC-A/samples", sample, &body)
	if status != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", status)
	}
	if body.Count != 1 {
		t.Errorf("event count = %d, want 1 breach", body.Count)
	}
	if !monitor.HasActiveBreaches("MEC-A") {
		t.Error("breach not recorded")
	}
	if s, _ := registry.Get("MEC-A"); s.LastSample == nil {
		t.Error("sample not stored")
	}

	if status := postJSON(t, srv.URL+"/api/sites/nope/samples", sample, nil); status != http.StatusNotFound {
		t.Errorf("unknown site status = %d, want 404", status)
	}
}

func TestSiteBreachesEndpoint(t *testing.T) {
	srv, _, monitor := newTestServer(t)

	monitor.Check(site.MetricSample{
		SiteID:     "MEC-A",
		Timestamp:  time.Now(),
		CPUPercent: 95,
	})

	var status service.BreachStatus
	if code := getJSON(t, srv.URL+"/api/sites/MEC-A/breaches", &status); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !status.HasActiveBreaches {
		t.Error("no active breaches reported")
	}

	if code := getJSON(t, srv.URL+"/api/sites/nope/breaches", nil); code != http.StatusNotFound {
		t.Errorf("unknown site status = %d, want 404", code)
	}
}

func TestFailAndRecover(t *testing.T) {
	srv, registry, _ := newTestServer(t)

	if status := postJSON(t, srv.URL+"/api/sites/MEC-C/fail", nil, nil); status != http.StatusOK {
		t.Fatalf("fail status = %d", status)
	}
	if s, _ := registry.Get("MEC-C"); !s.Failed {
		t.Error("site not failed")
	}

	if status := postJSON(t, srv.URL+"/api/sites/MEC-C/recover", nil, nil); status != http.StatusOK {
		t.Fatalf("recover status = %d", status)
	}
	if s, _ := registry.Get("MEC-C"); s.Failed {
		t.Error("site still failed")
	}

	if status := postJSON(t, srv.URL+"/api/sites/nope/fail", nil, nil); status != http.StatusNotFound {
		t.Errorf("unknown site fail status = %d, want 404", status)
	}
}

func TestStatusHistoryStats(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var st service.Status
	if code := getJSON(t, srv.URL+"/api/status", &st); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if st.TotalSites != 3 {
		t.Errorf("total sites = %d", st.TotalSites)
	}
	if st.State != service.StateIdle {
		t.Errorf("state = %s, want idle", st.State)
	}

	var hist struct {
		Count int `json:"count"`
	}
	if code := getJSON(t, srv.URL+"/api/history?limit=5", &hist); code != http.StatusOK {
		t.Fatalf("history code = %d", code)
	}
	if hist.Count != 0 {
		t.Errorf("history count = %d, want 0", hist.Count)
	}

	var stats service.MonitorStats
	if code := getJSON(t, srv.URL+"/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats code = %d", code)
	}
}

func TestPushSample_InvalidBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/sites/MEC-A/samples", "application/json",
		bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
