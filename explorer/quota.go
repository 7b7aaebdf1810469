package explorer

import "fmt"

// Quota is the display-only storage figure of the mounted device.
type Quota struct {
	SizeTotalBytes uint64 `json:"sizeTotal"`
	SizeFreeBytes  uint64 `json:"sizeFree"`
}

// UsedPercent is the used share of the device in [0, 100]. A zero total
// counts as nothing used.
func (q Quota) UsedPercent() float64 {
	if q.SizeTotalBytes == 0 || q.SizeFreeBytes >= q.SizeTotalBytes {
		return 0
	}
	used := q.SizeTotalBytes - q.SizeFreeBytes
	pct := float64(used) / float64(q.SizeTotalBytes) * 100
	return min(max(pct, 0), 100)
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with decimal units and one fractional
// digit, e.g. "1.5 GB".
func FormatBytes(n uint64) string {
	if n == 0 {
		return "0 B"
	}
	size := float64(n)
	unit := 0
	for size >= 1000 && unit < len(byteUnits)-1 {
		size /= 1000
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, byteUnits[unit])
}
