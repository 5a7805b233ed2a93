package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewReporterValidation(t *testing.T) {
	if _, err := NewReporter(Config{}, Dependencies{HTTPClient: http.DefaultClient}); err == nil {
		t.Fatalf("expected error for missing dashboard URL")
	}
	if _, err := NewReporter(Config{DashboardURL: "https://dash.example.com"}, Dependencies{}); err == nil {
		t.Fatalf("expected error for missing HTTP client")
	}
}

func TestReport(t *testing.T) {
	var gotMethod, gotPath, gotValue string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotValue = r.URL.Query().Get("value")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r, err := NewReporter(Config{DashboardURL: srv.URL + "/"}, Dependencies{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewReporter returned error: %v", err)
	}

	if err := r.Report(context.Background(), "mon-42", 87.5); err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST got %s", gotMethod)
	}
	if gotPath != "/webhook-monitor/mon-42" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotValue != "87.5" {
		t.Fatalf("unexpected value %q", gotValue)
	}
}

func TestReportIntegralValueFormat(t *testing.T) {
	var gotValue string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotValue = r.URL.Query().Get("value")
	}))
	defer srv.Close()

	r, err := NewReporter(Config{DashboardURL: srv.URL}, Dependencies{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewReporter returned error: %v", err)
	}
	if err := r.Report(context.Background(), "mon-1", 1); err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if gotValue != "1" {
		t.Fatalf("expected bare integer got %q", gotValue)
	}
}

func TestReportNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	r, err := NewReporter(Config{DashboardURL: srv.URL}, Dependencies{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewReporter returned error: %v", err)
	}

	err = r.Report(context.Background(), "mon-1", 10)
	if err == nil || !strings.Contains(err.Error(), "status") {
		t.Fatalf("expected status error got %v", err)
	}
}

func TestReportMissingMonitorID(t *testing.T) {
	r, err := NewReporter(Config{DashboardURL: "https://dash.example.com"}, Dependencies{HTTPClient: http.DefaultClient})
	if err != nil {
		t.Fatalf("NewReporter returned error: %v", err)
	}
	if err := r.Report(context.Background(), "", 1); err == nil {
		t.Fatalf("expected error for empty monitor ID")
	}
}

func TestReportRateLimited(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	r, err := NewReporter(Config{DashboardURL: srv.URL, RatePerSecond: 1000}, Dependencies{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewReporter returned error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := r.Report(context.Background(), "mon-1", float64(i)); err != nil {
			t.Fatalf("Report %d returned error: %v", i, err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 deliveries got %d", calls)
	}
}
