package probe

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// diskUsage returns the used-space percentage of the filesystem holding
// path, measured against the blocks available to unprivileged users.
func (c *Collector) diskUsage(path string) (float64, error) {
	if path == "" {
		path = "/"
	}

	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %q: %w", path, err)
	}
	if st.Blocks == 0 {
		return 0, fmt.Errorf("statfs %q: filesystem reports zero blocks", path)
	}

	used := st.Blocks - st.Bavail
	return float64(used) / float64(st.Blocks) * 100, nil
}
