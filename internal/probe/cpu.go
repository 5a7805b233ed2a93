package probe

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type cpuSample struct {
	busy  uint64
	total uint64
}

// cpuUsage computes the busy percentage across all CPUs from two
// aggregate samples taken one sample interval apart.
func (c *Collector) cpuUsage(ctx context.Context) (float64, error) {
	first, err := c.readCPUSample()
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(c.sampleInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	second, err := c.readCPUSample()
	if err != nil {
		return 0, err
	}

	if second.total <= first.total {
		return 0, fmt.Errorf("cpu counters did not advance")
	}
	totalDelta := second.total - first.total
	busyDelta := second.busy - first.busy
	return float64(busyDelta) / float64(totalDelta) * 100, nil
}

func (c *Collector) readCPUSample() (cpuSample, error) {
	path := filepath.Join(c.procPath, "stat")
	f, err := os.Open(path)
	if err != nil {
		return cpuSample{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		return parseCPULine(line)
	}
	if err := scanner.Err(); err != nil {
		return cpuSample{}, fmt.Errorf("read %q: %w", path, err)
	}
	return cpuSample{}, fmt.Errorf("no aggregate cpu line in %q", path)
}

// parseCPULine reads the aggregate "cpu" line: user nice system idle
// iowait irq softirq steal [guest guest_nice]. Idle and iowait count as
// not busy.
func parseCPULine(line string) (cpuSample, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return cpuSample{}, fmt.Errorf("short cpu line %q", line)
	}

	var sample cpuSample
	for i, raw := range fields[1:] {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return cpuSample{}, fmt.Errorf("bad cpu counter %q: %w", raw, err)
		}
		sample.total += v
		// fields[1:] index 3 is idle, 4 is iowait
		if i != 3 && i != 4 {
			sample.busy += v
		}
	}
	return sample, nil
}
