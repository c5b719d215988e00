package service

import (
	"testing"
	"time"

	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/events"
)

var (
	testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	admin      = &domain.User{ID: "u-admin", Username: "admin", Role: domain.RoleAdmin, Active: true}
	dispatcher = &domain.User{ID: "u-disp", Username: "digitador", FullName: "Dana Digitadora", Role: domain.RoleDispatcher, Active: true}
	otherDisp  = &domain.User{ID: "u-disp2", Username: "digitador2", Role: domain.RoleDispatcher, Active: true}
	techNet    = &domain.User{ID: "u-tech-net", Username: "redes", Role: domain.RoleTechnician, Active: true, Specialties: []string{"cat-net"}}
	techPrint  = &domain.User{ID: "u-tech-print", Username: "impresoras", Role: domain.RoleTechnician, Active: true, Specialties: []string{"cat-print"}}
	techAny    = &domain.User{ID: "u-tech-any", Username: "general", Role: domain.RoleTechnician, Active: true}
)

type harness struct {
	tickets    *fakeTickets
	users      *fakeUsers
	locations  *fakeLocations
	categories *fakeCategories
	comments   *fakeComments
	history    *fakeHistory
	cache      *fakeCache
	rec        *recorder
	cfg        config.Config

	ticketSvc *TicketService
	assignSvc *AssignmentService
	reportSvc *ReportService
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	slaHours := 2
	h := &harness{
		tickets: newFakeTickets(),
		users:   newFakeUsers(*admin, *dispatcher, *otherDisp, *techNet, *techPrint, *techAny),
		locations: newFakeLocations(
			domain.Location{ID: "loc-1", Code: "B001", Name: "Banca Centro", Active: true},
			domain.Location{ID: "loc-off", Code: "B999", Name: "Cerrada", Active: false},
		),
		categories: newFakeCategories(
			domain.Category{ID: "cat-net", Name: "Red", Active: true},
			domain.Category{ID: "cat-print", Name: "Impresora", Active: true, SLAHours: &slaHours},
			domain.Category{ID: "cat-old", Name: "Fax", Active: false},
		),
		comments: &fakeComments{},
		history:  &fakeHistory{},
		cache:    newFakeCache(),
		cfg: config.Config{
			SLA: config.SLAConfig{LowHours: 72, MediumHours: 24, HighHours: 8, UrgentHours: 4, ReportWindowDays: 90, DueSoonMinutes: 120, RecurrenceMinimum: 2, ReportTopRows: 10},
		},
	}
	for _, m := range mutate {
		m(&h.cfg)
	}
	bus := h.bus()
	clock := func() time.Time { return testNow }

	h.reportSvc = NewReportService(ReportDependencies{
		TicketRepo: h.tickets,
		Cache:      h.cache,
		CacheTTL:   time.Minute,
		Config:     h.cfg.SLA,
		Clock:      clock,
	})
	h.assignSvc = NewAssignmentService(AssignmentDependencies{
		TicketRepo:  h.tickets,
		UserRepo:    h.users,
		HistoryRepo: h.history,
		Dispatcher:  bus,
		Cache:       h.reportSvc,
		Config:      h.cfg.Tickets,
		Clock:       clock,
	})
	h.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:   h.tickets,
		CommentRepo:  h.comments,
		LocationRepo: h.locations,
		CategoryRepo: h.categories,
		UserRepo:     h.users,
		HistoryRepo:  h.history,
		Dispatcher:   bus,
		Picker:       h.assignSvc,
		Cache:        h.reportSvc,
		Config:       h.cfg,
		Clock:        clock,
	})
	return h
}

func (h *harness) bus() events.Dispatcher {
	rec, d := newRecorder()
	h.rec = rec
	return d
}

// seed stores a ticket directly, bypassing Create.
func (h *harness) seed(t domain.Ticket) *domain.Ticket {
	if t.LocationID == "" {
		t.LocationID = "loc-1"
		t.LocationCode = "B001"
		t.LocationName = "Banca Centro"
	}
	if t.Status == "" {
		t.Status = domain.TicketStatusPending
	}
	if t.Priority == "" {
		t.Priority = domain.TicketPriorityMedium
	}
	if t.CreatedByID == "" {
		t.CreatedByID = dispatcher.ID
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = testNow.Add(-time.Hour)
	}
	if t.SLADeadline.IsZero() {
		t.SLADeadline = t.CreatedAt.Add(24 * time.Hour)
	}
	return h.tickets.put(t)
}

func strp(s string) *string { return &s }
