package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/averias/internal/domain"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func tptr(t time.Time) *time.Time { return &t }
func sptr(s string) *string { return &s }

func dur(d time.Duration) *time.Duration { return &d }

type fixture struct {
	loc      string
	cat      *string
	catName  string
	status   domain.TicketStatus
	created  time.Time
	assigned *time.Time
	resolved *time.Time
	closed   *time.Time
	deadline time.Time
}

func (f fixture) ticket() *domain.Ticket {
	return &domain.Ticket{
		ID:           f.loc + f.created.String(),
		LocationID:   f.loc,
		LocationCode: f.loc,
		LocationName: "Local " + f.loc,
		CategoryID:   f.cat,
		CategoryName: f.catName,
		Status:       f.status,
		CreatedAt:    f.created,
		AssignedAt:   f.assigned,
		ResolvedAt:   f.resolved,
		ClosedAt:     f.closed,
		SLADeadline:  f.deadline,
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0d 3h 3m", FormatDuration(dur(183*time.Minute)))
	assert.Equal(t, "0d 0h 0m", FormatDuration(dur(0)))
	assert.Equal(t, "-", FormatDuration(nil))
	assert.Equal(t, "0d 0h 0m", FormatDuration(dur(-5*time.Hour)))
	assert.Equal(t, "2d 3h 15m", FormatDuration(dur(51*time.Hour+15*time.Minute+59*time.Second)))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(0, 0))
	assert.Equal(t, 100.0, Percent(3, 3))
	assert.Equal(t, 33.3, Percent(1, 3))
	assert.Equal(t, 66.7, Percent(2, 3))
	assert.Equal(t, 12.5, Percent(1, 8))
	// exact ties go to the even digit
	assert.Equal(t, 6.2, Percent(1, 16))
	assert.Equal(t, 18.8, Percent(3, 16))
	assert.Equal(t, 31.2, Percent(5, 16))
	assert.Equal(t, 43.8, Percent(7, 16))
	for total := 1; total <= 20; total++ {
		for part := 0; part <= total; part++ {
			p := Percent(part, total)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 100.0)
		}
	}
}

func TestMeetsSLA(t *testing.T) {
	deadline := now.Add(-time.Hour)
	assert.True(t, MeetsSLA(&domain.Ticket{ResolvedAt: tptr(deadline), SLADeadline: deadline}))
	assert.False(t, MeetsSLA(&domain.Ticket{ResolvedAt: tptr(deadline.Add(time.Second)), SLADeadline: deadline}))
	// resolved_at wins over an on-time close
	assert.False(t, MeetsSLA(&domain.Ticket{
		ResolvedAt:  tptr(deadline.Add(time.Minute)),
		ClosedAt:    tptr(deadline.Add(-time.Minute)),
		SLADeadline: deadline,
	}))
	assert.True(t, MeetsSLA(&domain.Ticket{ClosedAt: tptr(deadline.Add(-time.Minute)), SLADeadline: deadline}))
	assert.False(t, MeetsSLA(&domain.Ticket{SLADeadline: deadline}))
}

func TestSLAByLocation(t *testing.T) {
	since := now.Add(-DefaultWindow)
	base := now.Add(-48 * time.Hour)
	window := []*domain.Ticket{
		fixture{loc: "B01", status: domain.TicketStatusClosed, created: base,
			assigned: tptr(base.Add(30 * time.Minute)), resolved: tptr(base.Add(2 * time.Hour)),
			closed: tptr(base.Add(3 * time.Hour)), deadline: base.Add(4 * time.Hour)}.ticket(),
		fixture{loc: "B01", status: domain.TicketStatusResolved, created: base,
			resolved: tptr(base.Add(6 * time.Hour)), deadline: base.Add(4 * time.Hour)}.ticket(),
		fixture{loc: "A01", status: domain.TicketStatusClosed, created: base,
			assigned: tptr(base.Add(time.Hour)), closed: tptr(base.Add(time.Hour)), deadline: base.Add(4 * time.Hour)}.ticket(),
		// settled status but no timestamps: excluded
		fixture{loc: "A01", status: domain.TicketStatusClosed, created: base, deadline: base}.ticket(),
		// cancelled never counts
		fixture{loc: "A01", status: domain.TicketStatusCancelled, created: base,
			closed: tptr(base), deadline: base.Add(time.Hour)}.ticket(),
		// outside the window
		fixture{loc: "A01", status: domain.TicketStatusClosed, created: now.Add(-91 * 24 * time.Hour),
			closed: tptr(now.Add(-90 * 24 * time.Hour)), deadline: now}.ticket(),
	}
	open := []*domain.Ticket{
		fixture{loc: "C01", status: domain.TicketStatusPending, created: base, deadline: now.Add(-time.Minute)}.ticket(),
		fixture{loc: "B01", status: domain.TicketStatusInProgress, created: base, deadline: now.Add(time.Hour)}.ticket(),
		fixture{loc: "B01", status: domain.TicketStatusClosed, created: base, deadline: now.Add(-time.Hour)}.ticket(),
	}

	rows, totals := SLAByLocation(window, open, since, now)
	require.Len(t, rows, 3)

	assert.Equal(t, "B01", rows[0].Code)
	assert.Equal(t, 2, rows[0].Total)
	assert.Equal(t, 1, rows[0].OnTime)
	assert.Equal(t, 50.0, rows[0].PctOnTime)
	assert.Equal(t, "0d 4h 0m", rows[0].AvgResolution)
	assert.Equal(t, "0d 0h 30m", rows[0].AvgResponse)
	assert.Equal(t, 1, rows[0].Open)
	assert.Equal(t, 0, rows[0].OpenOverdue)

	assert.Equal(t, "A01", rows[1].Code)
	assert.Equal(t, 1, rows[1].Total)
	assert.Equal(t, 100.0, rows[1].PctOnTime)

	assert.Equal(t, "C01", rows[2].Code)
	assert.Equal(t, 0, rows[2].Total)
	assert.Equal(t, 0.0, rows[2].PctOnTime)
	assert.Equal(t, "-", rows[2].AvgResolution)
	assert.Equal(t, 1, rows[2].Open)
	assert.Equal(t, 1, rows[2].OpenOverdue)

	assert.Equal(t, 3, totals.Closed)
	assert.Equal(t, 2, totals.OnTime)
	assert.Equal(t, 66.7, totals.PctOnTime)
	assert.Equal(t, "0d 3h 0m", totals.AvgResolution)
	assert.Equal(t, "0d 0h 45m", totals.AvgResponse)
	assert.Equal(t, 2, totals.Open)
	assert.Equal(t, 1, totals.OpenOverdue)
}

func TestWindowBoundary(t *testing.T) {
	since := now.Add(-DefaultWindow)
	assert.True(t, InWindow(now.Add(-90*24*time.Hour), since, now))
	assert.False(t, InWindow(now.Add(-91*24*time.Hour), since, now))
	assert.True(t, InWindow(now, since, now))
}

func TestRecurrences(t *testing.T) {
	since := now.Add(-DefaultWindow)
	c, d := sptr("C"), sptr("D")
	created := now.Add(-24 * time.Hour)
	var window []*domain.Ticket
	for i := 0; i < 3; i++ {
		window = append(window, fixture{loc: "L", cat: c, catName: "Cajas", status: domain.TicketStatusPending,
			created: created.Add(time.Duration(i) * time.Minute)}.ticket())
	}
	window = append(window, fixture{loc: "L", cat: d, catName: "Datos", status: domain.TicketStatusClosed, created: created}.ticket())
	window = append(window,
		fixture{loc: "K", status: domain.TicketStatusCancelled, created: created}.ticket(),
		fixture{loc: "K", status: domain.TicketStatusPending, created: created.Add(time.Minute)}.ticket(),
		fixture{loc: "K", cat: d, catName: "Datos", status: domain.TicketStatusPending, created: created}.ticket(),
		fixture{loc: "K", cat: d, catName: "Datos", status: domain.TicketStatusPending, created: created.Add(time.Second)}.ticket(),
	)

	got := Recurrences(window, since, now, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "L", got[0].LocationCode)
	assert.Equal(t, "Cajas", got[0].CategoryName)
	assert.Equal(t, 3, got[0].Total)
	assert.Equal(t, "K", got[1].LocationCode)
	assert.Equal(t, "Datos", got[1].CategoryName)
	assert.Equal(t, "K", got[2].LocationCode)
	assert.Nil(t, got[2].CategoryID)
	for _, r := range got {
		assert.False(t, r.LocationCode == "L" && r.CategoryName == "Datos")
	}
}

func TestRecurrenceCap(t *testing.T) {
	since := now.Add(-DefaultWindow)
	var window []*domain.Ticket
	for i := 0; i < 60; i++ {
		loc := string(rune('A'+i%26)) + string(rune('A'+i/26))
		for j := 0; j < 2; j++ {
			window = append(window, fixture{loc: loc, status: domain.TicketStatusPending, created: now.Add(-time.Hour)}.ticket())
		}
	}
	assert.Len(t, Recurrences(window, since, now, 2), RecurrenceLimit)
}

func TestTopTechnicians(t *testing.T) {
	var counts []TechnicianCount
	for i := 0; i < 12; i++ {
		counts = append(counts, TechnicianCount{UserID: string(rune('a' + i)), Username: string(rune('a' + i)), Closed: i})
	}
	top := TopTechnicians(counts, 0)
	require.Len(t, top, 10)
	assert.Equal(t, 11, top[0].Closed)
	assert.Equal(t, 2, top[9].Closed)
}

func TestSummarizeOpen(t *testing.T) {
	mk := func(status domain.TicketStatus, deadline time.Time, created time.Time) *domain.Ticket {
		return &domain.Ticket{ID: deadline.String() + created.String(), Status: status, SLADeadline: deadline, CreatedAt: created}
	}
	tickets := []*domain.Ticket{
		mk(domain.TicketStatusPending, now.Add(-time.Hour), now.Add(-5*time.Hour)),
		mk(domain.TicketStatusInProgress, now.Add(90*time.Minute), now.Add(-3*time.Hour)),
		mk(domain.TicketStatusResolved, now.Add(5*time.Hour), now.Add(-1*time.Hour)),
		mk(domain.TicketStatusResolved, now.Add(5*time.Hour), now.Add(-30*time.Minute)),
		mk(domain.TicketStatusClosed, now.Add(-10*time.Hour), now.Add(-20*time.Hour)),
	}
	s := SummarizeOpen(tickets, now, 2*time.Hour)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Overdue)
	assert.Equal(t, 1, s.DueSoon)
	require.Len(t, s.Tickets, 4)
	assert.True(t, s.Tickets[0].SLADeadline.Before(s.Tickets[1].SLADeadline))
	assert.True(t, s.Tickets[2].CreatedAt.After(s.Tickets[3].CreatedAt))
}
