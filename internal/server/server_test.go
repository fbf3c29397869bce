package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRouter_Routes(t *testing.T) {
	ingestor := &mockIngestor{healthy: true}
	router := NewRouter(Config{}, ingestor, nil, testLogger())

	tests := []struct {
		method   string
		path     string
		body     string
		wantCode int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/health/ready", "", http.StatusOK},
		{http.MethodGet, "/v1/stats", "", http.StatusOK},
		{http.MethodPost, "/v1/events", loginJSON, http.StatusAccepted},
		{http.MethodGet, "/v1/events", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestNewRouter_CustomHealthPaths(t *testing.T) {
	router := NewRouter(Config{LivenessPath: "/livez", ReadinessPath: "/readyz"}, &mockIngestor{healthy: true}, nil, testLogger())

	for _, path := range []string{"/livez", "/readyz"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s status code = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestNewServer(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantServers int
	}{
		{name: "with metrics", cfg: Config{APIPort: 8080, MetricsPort: 9090, MetricsEnabled: true}, wantServers: 2},
		{name: "without metrics", cfg: Config{APIPort: 8080}, wantServers: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(tt.cfg, &mockIngestor{}, nil, prometheus.NewRegistry(), testLogger())
			if got := len(s.servers()); got != tt.wantServers {
				t.Errorf("servers = %d, want %d", got, tt.wantServers)
			}
			if s.apiServer.Addr != ":8080" {
				t.Errorf("api addr = %s, want :8080", s.apiServer.Addr)
			}
		})
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	testCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_metric_total",
		Help: "Test metric",
	})
	registry.MustRegister(testCounter)
	testCounter.Inc()

	s := NewServer(Config{MetricsEnabled: true}, &mockIngestor{}, nil, registry, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.metricsServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "test_metric_total 1") {
		t.Errorf("metrics body missing test counter: %s", w.Body.String())
	}
}

func TestServer_StartShutdown(t *testing.T) {
	s := NewServer(Config{APIPort: 0, MetricsPort: 0, MetricsEnabled: true}, &mockIngestor{}, nil, prometheus.NewRegistry(), testLogger())
	// Port 0 binds an ephemeral port for both servers.
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
