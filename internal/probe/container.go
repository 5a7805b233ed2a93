package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// containerRunning reports 1 when the named container is running, 0 when
// it is stopped or absent. A non-zero exit from docker inspect means the
// container does not exist, which is a valid "not running" answer.
func (c *Collector) containerRunning(ctx context.Context, name string) (float64, error) {
	if name == "" {
		return 0, fmt.Errorf("container name is required")
	}

	out, err := c.runCommand(ctx, "docker", "inspect", "-f", "{{.State.Running}}", name)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, nil
		}
		return 0, fmt.Errorf("run docker inspect: %w", err)
	}

	if strings.TrimSpace(string(out)) == "true" {
		return 1, nil
	}
	return 0, nil
}
