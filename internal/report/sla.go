// Package report aggregates ticket facts into SLA compliance figures.
// Everything here is pure: callers load tickets and pass them in.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/averias/internal/domain"
)

// DefaultWindow is the trailing period covered by the SLA report.
const DefaultWindow = 90 * 24 * time.Hour

var (
	closedStates = map[domain.TicketStatus]bool{
		domain.TicketStatusResolved: true,
		domain.TicketStatusClosed:   true,
	}
	openStates = map[domain.TicketStatus]bool{
		domain.TicketStatusPending:    true,
		domain.TicketStatusInProgress: true,
		domain.TicketStatusResolved:   true,
	}
)

// ClosedStates lists the statuses counted as settled.
func ClosedStates() []domain.TicketStatus {
	return []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed}
}

// OpenStates lists the statuses still owed work.
func OpenStates() []domain.TicketStatus {
	return []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusInProgress, domain.TicketStatusResolved}
}

// InWindow reports whether created falls in [since, now].
func InWindow(created, since, now time.Time) bool {
	return !created.Before(since) && !created.After(now)
}

// Settled reports whether a ticket counts toward SLA compliance.
func Settled(t *domain.Ticket) bool {
	return closedStates[t.Status] && (t.ResolvedAt != nil || t.ClosedAt != nil)
}

// MeetsSLA compares the first settlement timestamp against the deadline.
func MeetsSLA(t *domain.Ticket) bool {
	if t.ResolvedAt != nil {
		return !t.ResolvedAt.After(t.SLADeadline)
	}
	if t.ClosedAt != nil {
		return !t.ClosedAt.After(t.SLADeadline)
	}
	return false
}

// ResolutionTime is coalesce(resolved_at, closed_at) - created_at.
func ResolutionTime(t *domain.Ticket) *time.Duration {
	end := t.ResolvedAt
	if end == nil {
		end = t.ClosedAt
	}
	return between(t.CreatedAt, end)
}

// ResponseTime is assigned_at - created_at, nil when never assigned.
func ResponseTime(t *domain.Ticket) *time.Duration {
	return between(t.CreatedAt, t.AssignedAt)
}

// Percent returns round(part/total*100, 1) with ties to even, 0 when total is 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		RoundBank(1)
	if pct.IsNegative() {
		return 0
	}
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return 100
	}
	return pct.InexactFloat64()
}

// LocationSLA is one row of the per-location table.
type LocationSLA struct {
	LocationID    string  `json:"location_id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Total         int     `json:"total"`
	OnTime        int     `json:"on_time"`
	PctOnTime     float64 `json:"pct_on_time"`
	AvgResolution string  `json:"avg_resolution"`
	AvgResponse   string  `json:"avg_response"`
	Open          int     `json:"open"`
	OpenOverdue   int     `json:"open_overdue"`
}

// Totals summarizes the whole filtered set.
type Totals struct {
	Closed        int     `json:"closed"`
	OnTime        int     `json:"on_time"`
	PctOnTime     float64 `json:"pct_on_time"`
	AvgResolution string  `json:"avg_resolution"`
	AvgResponse   string  `json:"avg_response"`
	Open          int     `json:"open"`
	OpenOverdue   int     `json:"open_overdue"`
}

type locationAcc struct {
	row        LocationSLA
	resolution meanDuration
	response   meanDuration
}

// SLAByLocation builds the per-location rows and global totals.
// window holds tickets created in the reporting window; open holds every
// ticket currently in an open state regardless of age.
func SLAByLocation(window, open []*domain.Ticket, since, now time.Time) ([]LocationSLA, Totals) {
	accs := make(map[string]*locationAcc)
	get := func(t *domain.Ticket) *locationAcc {
		acc, ok := accs[t.LocationID]
		if !ok {
			acc = &locationAcc{row: LocationSLA{LocationID: t.LocationID, Code: t.LocationCode, Name: t.LocationName}}
			accs[t.LocationID] = acc
		}
		return acc
	}

	var totals Totals
	var allResolution, allResponse meanDuration
	for _, t := range window {
		if t == nil || !InWindow(t.CreatedAt, since, now) || !Settled(t) {
			continue
		}
		acc := get(t)
		acc.row.Total++
		totals.Closed++
		if MeetsSLA(t) {
			acc.row.OnTime++
			totals.OnTime++
		}
		res, resp := ResolutionTime(t), ResponseTime(t)
		acc.resolution.add(res)
		acc.response.add(resp)
		allResolution.add(res)
		allResponse.add(resp)
	}

	for _, t := range open {
		if t == nil || !openStates[t.Status] {
			continue
		}
		acc := get(t)
		acc.row.Open++
		totals.Open++
		if t.Overdue(now) {
			acc.row.OpenOverdue++
			totals.OpenOverdue++
		}
	}

	rows := make([]LocationSLA, 0, len(accs))
	for _, acc := range accs {
		row := acc.row
		row.PctOnTime = Percent(row.OnTime, row.Total)
		row.AvgResolution = FormatDuration(acc.resolution.value())
		row.AvgResponse = FormatDuration(acc.response.value())
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		if rows[i].Code != rows[j].Code {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Open > rows[j].Open
	})

	totals.PctOnTime = Percent(totals.OnTime, totals.Closed)
	totals.AvgResolution = FormatDuration(allResolution.value())
	totals.AvgResponse = FormatDuration(allResponse.value())
	return rows, totals
}
