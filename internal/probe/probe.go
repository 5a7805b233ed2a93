// Package probe collects single numeric host metrics: disk usage, CPU
// usage, memory usage, service status, process count, and container
// status. Each probe computes one value for one monitor; reporting is the
// caller's concern.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Kind selects which metric a probe collects.
type Kind string

const (
	KindDisk      Kind = "disk"
	KindCPU       Kind = "cpu"
	KindMemory    Kind = "memory"
	KindService   Kind = "service"
	KindProcess   Kind = "process"
	KindContainer Kind = "container"
)

// Kinds lists every supported probe kind.
func Kinds() []Kind {
	return []Kind{KindDisk, KindCPU, KindMemory, KindService, KindProcess, KindContainer}
}

// Request names the monitor a value is collected for and the probe's
// target: a mount path for disk, a unit name for service, a process name
// for process, a container name for container. CPU and memory probes
// take no target.
type Request struct {
	MonitorID string
	Kind      Kind
	Target    string
}

// Result is one collected metric value.
type Result struct {
	MonitorID   string
	Kind        Kind
	Value       float64
	CollectedAt time.Time
}

// Collector runs probes. Command execution, the proc filesystem root,
// and the clock are injectable for tests.
type Collector struct {
	sampleInterval time.Duration
	procPath       string
	runCommand     func(ctx context.Context, name string, args ...string) ([]byte, error)
	now            func() time.Time
}

type Option func(*Collector)

// WithSampleInterval sets the CPU sampling window.
func WithSampleInterval(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.sampleInterval = d
		}
	}
}

// WithProcPath overrides the proc filesystem root.
func WithProcPath(path string) Option {
	return func(c *Collector) {
		if path != "" {
			c.procPath = path
		}
	}
}

// WithCommandRunner overrides external command execution.
func WithCommandRunner(run func(ctx context.Context, name string, args ...string) ([]byte, error)) Option {
	return func(c *Collector) {
		if run != nil {
			c.runCommand = run
		}
	}
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		sampleInterval: time.Second,
		procPath:       "/proc",
		runCommand:     runCommand,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect computes the metric for req.
func (c *Collector) Collect(ctx context.Context, req Request) (Result, error) {
	if req.MonitorID == "" {
		return Result{}, fmt.Errorf("monitor ID is required")
	}

	var (
		value float64
		err   error
	)
	switch req.Kind {
	case KindDisk:
		value, err = c.diskUsage(req.Target)
	case KindCPU:
		value, err = c.cpuUsage(ctx)
	case KindMemory:
		value, err = c.memoryUsage()
	case KindService:
		value, err = c.serviceActive(ctx, req.Target)
	case KindProcess:
		value, err = c.processCount(req.Target)
	case KindContainer:
		value, err = c.containerRunning(ctx, req.Target)
	default:
		return Result{}, fmt.Errorf("unknown probe kind %q", req.Kind)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s probe: %w", req.Kind, err)
	}

	return Result{
		MonitorID:   req.MonitorID,
		Kind:        req.Kind,
		Value:       value,
		CollectedAt: c.now().UTC(),
	}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
