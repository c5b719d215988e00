package report

import (
	"sort"
	"time"

	"github.com/spec-kit/averias/internal/domain"
)

const (
	// DefaultRecurrenceMin is the smallest group reported as recurring.
	DefaultRecurrenceMin = 2
	// RecurrenceLimit caps the recurrence table.
	RecurrenceLimit = 50
)

// Recurrence counts repeated failures of one category at one location.
type Recurrence struct {
	LocationID   string  `json:"location_id"`
	LocationCode string  `json:"location_code"`
	LocationName string  `json:"location_name"`
	CategoryID   *string `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Total        int     `json:"total"`
}

type recurrenceKey struct {
	location string
	category string
}

// Recurrences groups window tickets of any status by (location, category).
func Recurrences(window []*domain.Ticket, since, now time.Time, minCount int) []Recurrence {
	if minCount <= 0 {
		minCount = DefaultRecurrenceMin
	}
	groups := make(map[recurrenceKey]*Recurrence)
	for _, t := range window {
		if t == nil || !InWindow(t.CreatedAt, since, now) {
			continue
		}
		key := recurrenceKey{location: t.LocationID}
		if t.CategoryID != nil {
			key.category = *t.CategoryID
		}
		g, ok := groups[key]
		if !ok {
			g = &Recurrence{
				LocationID:   t.LocationID,
				LocationCode: t.LocationCode,
				LocationName: t.LocationName,
				CategoryID:   t.CategoryID,
				CategoryName: t.CategoryName,
			}
			groups[key] = g
		}
		g.Total++
	}

	out := make([]Recurrence, 0, len(groups))
	for _, g := range groups {
		if g.Total >= minCount {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.LocationCode != b.LocationCode {
			return a.LocationCode < b.LocationCode
		}
		// uncategorized groups sort after named ones
		if (a.CategoryID == nil) != (b.CategoryID == nil) {
			return b.CategoryID == nil
		}
		return a.CategoryName < b.CategoryName
	})
	if len(out) > RecurrenceLimit {
		out = out[:RecurrenceLimit]
	}
	return out
}
