package report

import (
	"sort"
	"time"

	"github.com/spec-kit/averias/internal/domain"
)

// Options tune the admin report.
type Options struct {
	RecurrenceMin  int
	TopTechnicians int
}

// Dashboard is the full admin SLA report.
type Dashboard struct {
	Since          time.Time         `json:"since"`
	Now            time.Time         `json:"now"`
	Totals         Totals            `json:"totals"`
	Locations      []LocationSLA     `json:"locations"`
	Recurrences    []Recurrence      `json:"recurrences"`
	TopTechnicians []TechnicianCount `json:"top_technicians"`
}

// Build assembles the dashboard from preloaded facts.
func Build(window, open []*domain.Ticket, technicians []TechnicianCount, since, now time.Time, opts Options) Dashboard {
	rows, totals := SLAByLocation(window, open, since, now)
	return Dashboard{
		Since:          since,
		Now:            now,
		Totals:         totals,
		Locations:      rows,
		Recurrences:    Recurrences(window, since, now, opts.RecurrenceMin),
		TopTechnicians: TopTechnicians(technicians, opts.TopTechnicians),
	}
}

// OpenSummaryLimit caps the urgent ticket list on the home dashboard.
const OpenSummaryLimit = 50

// OpenSummary is the role-scoped home view: counters plus the most urgent tickets.
type OpenSummary struct {
	Total   int              `json:"total"`
	Overdue int              `json:"overdue"`
	DueSoon int              `json:"due_soon"`
	Tickets []*domain.Ticket `json:"-"`
}

// SummarizeOpen counts overdue and due-within-window tickets and orders the
// rest by deadline ascending, newest first on ties.
func SummarizeOpen(tickets []*domain.Ticket, now time.Time, dueSoon time.Duration) OpenSummary {
	var s OpenSummary
	limit := now.Add(dueSoon)
	list := make([]*domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t == nil || !openStates[t.Status] {
			continue
		}
		s.Total++
		switch {
		case t.Overdue(now):
			s.Overdue++
		case !t.SLADeadline.After(limit):
			s.DueSoon++
		}
		list = append(list, t)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].SLADeadline.Equal(list[j].SLADeadline) {
			return list[i].SLADeadline.Before(list[j].SLADeadline)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if len(list) > OpenSummaryLimit {
		list = list[:OpenSummaryLimit]
	}
	s.Tickets = list
	return s
}
