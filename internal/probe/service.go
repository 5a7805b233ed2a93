package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// serviceActive reports 1 when the named systemd unit is active, 0
// otherwise. A non-zero exit from systemctl is a valid "inactive"
// answer, not a probe failure.
func (c *Collector) serviceActive(ctx context.Context, unit string) (float64, error) {
	if unit == "" {
		return 0, fmt.Errorf("service name is required")
	}

	_, err := c.runCommand(ctx, "systemctl", "is-active", "--quiet", unit)
	if err == nil {
		return 1, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return 0, nil
	}
	return 0, fmt.Errorf("run systemctl: %w", err)
}
