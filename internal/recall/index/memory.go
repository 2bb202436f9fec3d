package index

import "github.com/shirou/gopsutil/v3/mem"

// totalPhysicalMemory returns the host's total physical memory in bytes,
// used to resolve a fractional memory budget into an absolute limit. If the
// platform query fails, it returns 0, which disables fraction-based limits
// and leaves an explicit LimitBytes (or NoLimit) as the only way to bound
// the index.
func totalPhysicalMemory() int64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return int64(v.Total)
}
