// Package report runs every monitor recorded in the config store: it
// collects each metric and posts the value to the dashboard webhook.
// Delivery stays best effort; a failing monitor is logged and skipped,
// never retried.
package report

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vigilohq/agent/internal/confstore"
	"github.com/vigilohq/agent/internal/probe"
)

const (
	defaultCollection  = "monitor_data"
	defaultConcurrency = 4
)

// ConfigStore is the slice of the config store the runner reads.
type ConfigStore interface {
	CountRecords(ctx context.Context, collection string) (int, error)
	ReadValue(ctx context.Context, fieldPath string) (*confstore.Value, error)
}

// Logger is the minimal sink the runner writes through.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Config holds the static configuration for a Runner.
type Config struct {
	Collection  string
	Concurrency int
}

// Dependencies inject the store, the collector, and the reporter.
type Dependencies struct {
	Store   ConfigStore
	Collect func(ctx context.Context, req probe.Request) (probe.Result, error)
	Report  func(ctx context.Context, monitorID string, value float64) error
	Logger  Logger
}

// Runner executes one best-effort pass over the monitor collection.
type Runner struct {
	collection  string
	concurrency int
	store       ConfigStore
	collect     func(ctx context.Context, req probe.Request) (probe.Result, error)
	report      func(ctx context.Context, monitorID string, value float64) error
	logger      Logger
}

// Summary counts the outcome of one run.
type Summary struct {
	Total    int
	Reported int
	Failed   int
	Skipped  int
}

// NewRunner builds a Runner from configuration and dependencies.
func NewRunner(cfg Config, deps Dependencies) (*Runner, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("config store is required")
	}
	if deps.Collect == nil {
		return nil, fmt.Errorf("collector is required")
	}
	if deps.Report == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Runner{
		collection:  collection,
		concurrency: concurrency,
		store:       deps.Store,
		collect:     deps.Collect,
		report:      deps.Report,
		logger:      logger,
	}, nil
}

// Run reads the monitor records serially (the store is single-actor),
// then collects and reports concurrently.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	count, err := r.store.CountRecords(ctx, r.collection)
	if err != nil {
		return Summary{}, fmt.Errorf("count %s records: %w", r.collection, err)
	}

	summary := Summary{Total: count}
	if count == 0 {
		r.logger.Infof("no monitors configured in %s", r.collection)
		return summary, nil
	}

	var requests []probe.Request
	for i := 0; i < count; i++ {
		rec, err := r.store.ReadValue(ctx, fmt.Sprintf("%s[%d]", r.collection, i))
		if err != nil {
			return Summary{}, fmt.Errorf("read %s[%d]: %w", r.collection, i, err)
		}
		req, ok := recordToRequest(rec)
		if !ok {
			r.logger.Warnf("skipping %s[%d]: missing monitor_id or monitor_kind", r.collection, i)
			summary.Skipped++
			continue
		}
		requests = append(requests, req)
	}

	var reported, failed atomic.Int64
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(r.concurrency)

	for _, req := range requests {
		req := req
		grp.Go(func() error {
			result, err := r.collect(grpCtx, req)
			if err != nil {
				r.logger.Errorf("collect %s for monitor %s: %v", req.Kind, req.MonitorID, err)
				failed.Add(1)
				return nil
			}
			if err := r.report(grpCtx, result.MonitorID, result.Value); err != nil {
				r.logger.Errorf("report monitor %s: %v", result.MonitorID, err)
				failed.Add(1)
				return nil
			}
			reported.Add(1)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return summary, err
	}

	summary.Reported = int(reported.Load())
	summary.Failed = int(failed.Load())
	r.logger.Infof("report run finished: %d reported, %d failed, %d skipped of %d",
		summary.Reported, summary.Failed, summary.Skipped, summary.Total)
	return summary, nil
}

func recordToRequest(rec *confstore.Value) (probe.Request, bool) {
	if rec == nil || rec.Kind() != confstore.KindObject {
		return probe.Request{}, false
	}
	id, ok := rec.Get("monitor_id")
	if !ok || id.Text() == "" {
		return probe.Request{}, false
	}
	kind, ok := rec.Get("monitor_kind")
	if !ok || kind.Text() == "" {
		return probe.Request{}, false
	}
	req := probe.Request{
		MonitorID: id.Text(),
		Kind:      probe.Kind(kind.Text()),
	}
	if target, ok := rec.Get("monitor_target"); ok {
		req.Target = target.Text()
	}
	return req, true
}
