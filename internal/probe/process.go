package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// processCount counts running processes whose comm name equals name.
func (c *Collector) processCount(name string) (float64, error) {
	if name == "" {
		return 0, fmt.Errorf("process name is required")
	}

	entries, err := os.ReadDir(c.procPath)
	if err != nil {
		return 0, fmt.Errorf("read %q: %w", c.procPath, err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(c.procPath, entry.Name(), "comm"))
		if err != nil {
			// The process may have exited between the listing and the read.
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			count++
		}
	}
	return float64(count), nil
}
