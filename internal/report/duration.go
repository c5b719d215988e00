package report

import (
	"fmt"
	"math"
	"time"
)

// Placeholder is rendered for durations that are missing or cannot be computed.
const Placeholder = "-"

// FormatDuration renders d as "{d}d {h}h {m}m". Negative values clamp to zero.
func FormatDuration(d *time.Duration) string {
	if d == nil {
		return Placeholder
	}
	total := int64(d.Seconds())
	if total < 0 {
		total = 0
	}
	days := total / 86400
	rem := total % 86400
	hours := rem / 3600
	minutes := (rem % 3600) / 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// meanDuration averages in float seconds so long windows cannot overflow.
type meanDuration struct {
	sum   float64
	count int
}

func (m *meanDuration) add(d *time.Duration) {
	if d == nil {
		return
	}
	m.sum += d.Seconds()
	m.count++
}

func (m meanDuration) value() *time.Duration {
	if m.count == 0 {
		return nil
	}
	avg := m.sum / float64(m.count)
	if math.IsNaN(avg) || math.IsInf(avg, 0) || avg > float64(math.MaxInt64)/float64(time.Second) {
		return nil
	}
	d := time.Duration(avg * float64(time.Second))
	return &d
}

func between(from time.Time, to *time.Time) *time.Duration {
	if to == nil || from.IsZero() {
		return nil
	}
	d := to.Sub(from)
	return &d
}
