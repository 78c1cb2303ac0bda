package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"proxysaringan/proxypool/model"
	"strings"
	"testing"
	"time"
)

func TestFileStorage_SaveWritesExpectedShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workingProxies.json")
	fs := NewFileStorage(path)

	reports := []model.ProxyReport{
		{
			Proxy: "1.1.1.1:80",
			Probes: []model.ProbeResult{
				{Target: "https://google.com", Success: true, Latency: 100 * time.Millisecond},
				{Target: "https://shopee.co.id", Success: true, Latency: 200 * time.Millisecond},
			},
			TotalLatency: 300 * time.Millisecond,
		},
	}
	if err := fs.Save(reports); err != nil {
		t.Fatalf("Save() returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n    {") {
		t.Errorf("Expected 4-space indentation, got:\n%s", data)
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(raw))
	}
	rec := raw[0]
	if rec["proxy"] != "1.1.1.1:80" {
		t.Errorf("unexpected proxy: %v", rec["proxy"])
	}
	if total, ok := rec["total_time"].(float64); !ok || total < 0.2999 || total > 0.3001 {
		t.Errorf("unexpected total_time: %v", rec["total_time"])
	}
	websites := rec["websites"].([]interface{})
	first := websites[0].(map[string]interface{})
	if first["website"] != "https://google.com" || first["success"] != true || first["speed"] != "0.1" {
		t.Errorf("unexpected first website record: %v", first)
	}
	if _, hasError := first["error"]; hasError {
		t.Error("Expected no error field on a successful probe")
	}
}

func TestFileStorage_SaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := NewFileStorage(path).Save(nil); err != nil {
		t.Fatalf("Save() returned an error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected empty array, got %q", data)
	}
}

func TestFileStorage_SaveToMissingDirFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.json")
	if err := NewFileStorage(path).Save(nil); err == nil {
		t.Error("Expected an error when the directory does not exist")
	}
}

func TestToWebsiteRecord_FieldPresence(t *testing.T) {
	tests := []struct {
		name      string
		probe     model.ProbeResult
		wantSpeed string
		wantError string
	}{
		{
			name:      "success",
			probe:     model.ProbeResult{Target: "A", Success: true, Latency: 250 * time.Millisecond},
			wantSpeed: "0.25",
		},
		{
			name: "status fault keeps speed",
			probe: model.ProbeResult{Target: "B", Latency: 50 * time.Millisecond,
				Fault: &model.ProbeFault{Kind: model.FaultHTTPStatus, StatusCode: 503}},
			wantSpeed: "0.05",
			wantError: "Response code: 503",
		},
		{
			name: "transport fault has no speed",
			probe: model.ProbeResult{Target: "C",
				Fault: &model.ProbeFault{Kind: model.FaultTransport, Reason: "connection refused"}},
			wantSpeed: "N/A",
			wantError: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := toWebsiteRecord(tt.probe)
			if rec.Speed != tt.wantSpeed {
				t.Errorf("Expected speed %q, got %q", tt.wantSpeed, rec.Speed)
			}
			if rec.Error != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, rec.Error)
			}
		})
	}
}
