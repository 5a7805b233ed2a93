package probe

import (
	"fmt"

	"github.com/pbnjay/memory"
)

// memoryUsage returns the used-memory percentage of total system memory.
func (c *Collector) memoryUsage() (float64, error) {
	total := memory.TotalMemory()
	if total == 0 {
		return 0, fmt.Errorf("total system memory unavailable")
	}
	free := memory.FreeMemory()
	if free > total {
		free = total
	}
	return float64(total-free) / float64(total) * 100, nil
}
