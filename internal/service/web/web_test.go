package web

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/gorilla/websocket"
	"net/http"
	"net/http/httptest"
	"proxysaringan/internal/shared/globalstate"
	"proxysaringan/internal/shared/types"
	manager "proxysaringan/proxypool"
	"proxysaringan/proxypool/model"
	"proxysaringan/proxypool/storage"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeProvider struct {
	mu      sync.Mutex
	reports []model.ProxyReport
	err     error
	entry   *model.CacheEntry
	fresh   bool
	calls   int
}

func (f *fakeProvider) GetCurrent(ctx context.Context) ([]model.ProxyReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reports, f.err
}

func (f *fakeProvider) Entry() (*model.CacheEntry, bool) {
	return f.entry, f.entry != nil
}

func (f *fakeProvider) IsFresh() bool {
	return f.fresh
}

func (f *fakeProvider) TTL() time.Duration {
	return 30 * time.Minute
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleReports() []model.ProxyReport {
	return []model.ProxyReport{
		{
			Proxy: "10.0.0.1:8080",
			Probes: []model.ProbeResult{
				{Target: "https://a.test", Success: true, Latency: 500 * time.Millisecond},
				{Target: "https://b.test", Success: true, Latency: 250 * time.Millisecond},
			},
			TotalLatency: 750 * time.Millisecond,
		},
	}
}

func newTestRouter(conf types.WebConf, p ProxyProvider) (http.Handler, *Hub) {
	hub := NewHub()
	return NewRouter(conf, p, hub), hub
}

func TestGetProxiesReturnsRecords(t *testing.T) {
	p := &fakeProvider{reports: sampleReports()}
	router, _ := newTestRouter(types.WebConf{}, p)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxies", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var records []storage.ProxyRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Proxy != "10.0.0.1:8080" {
		t.Fatalf("records = %+v", records)
	}
	if records[0].TotalTime != 0.75 {
		t.Errorf("total_time = %v, want 0.75", records[0].TotalTime)
	}
	if len(records[0].Websites) != 2 || records[0].Websites[1].Speed != "0.25" {
		t.Errorf("websites = %+v", records[0].Websites)
	}
}

func TestGetProxiesEmptyListIsArray(t *testing.T) {
	p := &fakeProvider{reports: nil}
	router, _ := newTestRouter(types.WebConf{}, p)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxies", nil))

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestGetProxiesFetchFault(t *testing.T) {
	p := &fakeProvider{err: errors.New("fetch candidate list: boom")}
	router, _ := newTestRouter(types.WebConf{}, p)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxies", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body["error"], "boom") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestGetProxiesPersistFaultStillServesData(t *testing.T) {
	p := &fakeProvider{
		reports: sampleReports(),
		err:     &manager.PersistError{Err: errors.New("disk full")},
	}
	router, _ := newTestRouter(types.WebConf{}, p)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxies", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if h := rec.Header().Get("X-Persist-Error"); !strings.Contains(h, "disk full") {
		t.Errorf("X-Persist-Error = %q", h)
	}
	var records []storage.ProxyRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestBasicAuth(t *testing.T) {
	p := &fakeProvider{reports: sampleReports()}
	router, _ := newTestRouter(types.WebConf{User: "admin", Password: "secret"}, p)

	cases := []struct {
		name       string
		user, pass string
		setAuth    bool
		want       int
	}{
		{name: "no credentials", want: http.StatusUnauthorized},
		{name: "wrong password", user: "admin", pass: "nope", setAuth: true, want: http.StatusUnauthorized},
		{name: "valid", user: "admin", pass: "secret", setAuth: true, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/proxies", nil)
			if tc.setAuth {
				req.SetBasicAuth(tc.user, tc.pass)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
	if p.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", p.callCount())
	}

	// 状态接口不需要认证
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status endpoint = %d, want 200", rec.Code)
	}
}

func TestStatusWithoutEntry(t *testing.T) {
	globalstate.GlobalStatus.Set("Idle")
	p := &fakeProvider{}
	router, _ := newTestRouter(types.WebConf{}, p)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Fresh || resp.Count != 0 || resp.Summary != nil || resp.Timestamp != nil {
		t.Errorf("unexpected status %+v", resp)
	}
	if resp.Phase != "Idle" {
		t.Errorf("phase = %q, want Idle", resp.Phase)
	}
	if resp.PhaseSeconds < 0 || resp.PhaseSeconds > 60 {
		t.Errorf("phase_seconds = %v, want a small non-negative value", resp.PhaseSeconds)
	}
	if resp.TTLSeconds != 1800 {
		t.Errorf("ttl_seconds = %v, want 1800", resp.TTLSeconds)
	}
	if p.callCount() != 0 {
		t.Errorf("status must not trigger a refresh")
	}
}

func TestStatusWithEntry(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := &fakeProvider{
		fresh: true,
		entry: &model.CacheEntry{
			ID:        "cycle-1",
			Timestamp: ts,
			Reports:   sampleReports(),
			Summary:   model.NewBatchSummary(4, 1, 2*time.Second),
		},
	}
	h := NewHandler(p)
	h.now = func() time.Time { return ts.Add(90 * time.Second) }

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Fresh || resp.CycleID != "cycle-1" || resp.Count != 1 {
		t.Errorf("unexpected status %+v", resp)
	}
	if resp.AgeSeconds != 90 {
		t.Errorf("age_seconds = %v, want 90", resp.AgeSeconds)
	}
	if resp.Summary == nil || resp.Summary.Total != 4 || resp.Summary.Rejected != 3 || resp.Summary.SuccessRate != 0.25 {
		t.Errorf("summary = %+v", resp.Summary)
	}
}

func TestHubBroadcastsProgress(t *testing.T) {
	p := &fakeProvider{}
	router, hub := newTestRouter(types.WebConf{}, p)
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.OnProgress(model.Progress{Completed: 1, Accepted: 1, Rejected: 0, Total: 2})
	hub.OnComplete(model.NewBatchSummary(2, 1, time.Second))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second WebSocketMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read progress: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if first.Type != "progress" || second.Type != "summary" {
		t.Fatalf("types = %q, %q", first.Type, second.Type)
	}
	data, ok := first.Data.(map[string]interface{})
	if !ok || data["completed"] != float64(1) || data["total"] != float64(2) {
		t.Errorf("progress data = %#v", first.Data)
	}
	summary, ok := second.Data.(map[string]interface{})
	if !ok || summary["success_rate"] != 0.5 {
		t.Errorf("summary data = %#v", second.Data)
	}
}

func TestStartServerDisabled(t *testing.T) {
	var wg sync.WaitGroup
	srv, err := StartServer(&wg, types.WebConf{Port: 0}, &fakeProvider{}, NewHub())
	if err != nil || srv != nil {
		t.Fatalf("StartServer() = %v, %v; want nil, nil", srv, err)
	}
}
