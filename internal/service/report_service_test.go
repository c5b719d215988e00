package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/report"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

func TestSLADashboardAdminOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, u := range []*domain.User{dispatcher, techNet} {
		_, err := h.reportSvc.SLADashboard(ctx, u)
		assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
	}
	_, err := h.reportSvc.SLADashboard(ctx, admin)
	assert.NoError(t, err)
}

func TestReportComputeUsesWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	day := 24 * time.Hour
	resolvedOnTime := testNow.Add(-10*day + time.Hour)
	h.seed(domain.Ticket{
		CategoryID:  strp("cat-net"),
		Status:      domain.TicketStatusClosed,
		CreatedAt:   testNow.Add(-10 * day),
		SLADeadline: testNow.Add(-10*day + 4*time.Hour),
		ResolvedAt:  &resolvedOnTime,
	})
	h.seed(domain.Ticket{CategoryID: strp("cat-net"), CreatedAt: testNow.Add(-2 * day)})
	h.seed(domain.Ticket{CategoryID: strp("cat-net"), Status: domain.TicketStatusClosed, CreatedAt: testNow.Add(-91 * day)})
	h.tickets.leaders = []report.TechnicianCount{{UserID: techNet.ID, Username: techNet.Username, Closed: 4}}

	d, err := h.reportSvc.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-90*day), d.Since)
	assert.Equal(t, 1, d.Totals.Closed)
	assert.Equal(t, 1, d.Totals.OnTime)
	assert.Equal(t, 100.0, d.Totals.PctOnTime)
	require.Len(t, d.Recurrences, 1)
	assert.Equal(t, 2, d.Recurrences[0].Total)
	require.Len(t, d.TopTechnicians, 1)
	assert.Equal(t, 4, d.TopTechnicians[0].Closed)
}

func TestReportDashboardCaches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.reportSvc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Totals.Closed)

	closedAt := testNow.Add(-time.Minute)
	h.seed(domain.Ticket{Status: domain.TicketStatusClosed, CreatedAt: testNow.Add(-time.Hour), ClosedAt: &closedAt})
	cached, err := h.reportSvc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cached.Totals.Closed)

	h.reportSvc.Invalidate(ctx)
	fresh, err := h.reportSvc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Totals.Closed)

	h.seed(domain.Ticket{Status: domain.TicketStatusClosed, CreatedAt: testNow.Add(-2 * time.Hour), ClosedAt: &closedAt})
	require.NoError(t, h.reportSvc.Warm(ctx))
	warmed, err := h.reportSvc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, warmed.Totals.Closed)
}
