package config

import "github.com/shirou/gopsutil/v4/mem"

// Per-Chrome-instance memory budget and safety bounds for AutoPoolSize,
// matching the teacher corpus's chrome pool sizing formula: reserve 2GB for
// the OS and this process itself, then divide what's left by 500MB per
// headless Chrome instance.
const (
	reservedBytes         = 2 * 1024 * 1024 * 1024
	perInstanceBytes      = 500 * 1024 * 1024
	minAutoPoolSize       = 2
	maxAutoPoolSize       = 50
	fallbackTotalRAMBytes = 8 * 1024 * 1024 * 1024
)

// AutoPoolSize estimates how many browser instances this machine can run
// concurrently from its total RAM, clamped to [minAutoPoolSize,
// maxAutoPoolSize]. It falls back to an 8GB assumption if the OS memory
// query itself fails, rather than refusing to start.
func AutoPoolSize() int {
	total := int64(fallbackTotalRAMBytes)
	if v, err := mem.VirtualMemory(); err == nil {
		total = int64(v.Total)
	}

	available := total - reservedBytes
	size := int(available / perInstanceBytes)

	if size < minAutoPoolSize {
		return minAutoPoolSize
	}
	if size > maxAutoPoolSize {
		return maxAutoPoolSize
	}
	return size
}
