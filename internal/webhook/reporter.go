// Package webhook delivers collected metric values to the dashboard's
// per-monitor webhook endpoint. Delivery is best effort: one request, no
// retries; callers log failures and move on.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const webhookPathPrefix = "/webhook-monitor/"

// Config holds the static configuration for a Reporter.
type Config struct {
	DashboardURL string
	// RatePerSecond caps outgoing reports during batch runs; zero means
	// no cap.
	RatePerSecond float64
}

// Logger is the minimal sink the reporter writes through.
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Dependencies allow test overrides for HTTP client, clock, and logging.
type Dependencies struct {
	HTTPClient *http.Client
	Logger     Logger
	Now        func() time.Time
}

// Reporter posts one value per monitor to the dashboard webhook.
type Reporter struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     Logger
	now        func() time.Time
}

// NewReporter builds a Reporter from configuration and dependencies.
func NewReporter(cfg Config, deps Dependencies) (*Reporter, error) {
	if cfg.DashboardURL == "" {
		return nil, fmt.Errorf("dashboard URL is required")
	}
	if deps.HTTPClient == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Reporter{
		httpClient: deps.HTTPClient,
		baseURL:    strings.TrimRight(cfg.DashboardURL, "/"),
		limiter:    limiter,
		logger:     logger,
		now:        now,
	}, nil
}

// Report sends one value for one monitor. A non-2xx status is returned
// as an error for the caller to log; it is never retried here.
func (r *Reporter) Report(ctx context.Context, monitorID string, value float64) error {
	if monitorID == "" {
		return fmt.Errorf("monitor ID is required")
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	target := r.baseURL + webhookPathPrefix + url.PathEscape(monitorID) +
		"?value=" + url.QueryEscape(strconv.FormatFloat(value, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vigilo-agent/0.0.1")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook report: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook report failed: status %s", resp.Status)
	}

	r.logger.Infof("reported value %s for monitor %s", strconv.FormatFloat(value, 'f', -1, 64), monitorID)
	return nil
}
