package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/events"
	"github.com/spec-kit/averias/internal/persistence"
	"github.com/spec-kit/averias/internal/report"
	"github.com/spec-kit/averias/internal/repository"
)

type fakeTickets struct {
	mu      sync.Mutex
	rows    map[string]domain.Ticket
	leaders []report.TechnicianCount
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{rows: map[string]domain.Ticket{}}
}

func (f *fakeTickets) put(t domain.Ticket) *domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	f.rows[t.ID] = t
	return &t
}

func (f *fakeTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket.ID = uuid.NewString()
	f.rows[ticket.ID] = *ticket
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (f *fakeTickets) matching(p access.Predicate) []*domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range f.rows {
		t := t
		if p.Matches(&t) {
			out = append(out, &t)
		}
	}
	return out
}

func (f *fakeTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	found := f.matching(filter.Predicate)
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	total := len(found)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	out := make([]domain.Ticket, 0, end-start)
	for _, t := range found[start:end] {
		out = append(out, *t)
	}
	return out, total, nil
}

func (f *fakeTickets) ListMatching(_ context.Context, p access.Predicate) ([]*domain.Ticket, error) {
	return f.matching(p), nil
}

func (f *fakeTickets) AssignIfUnassigned(_ context.Context, ticketID, userID string, at time.Time, start bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[ticketID]
	if !ok || t.AssignedToID != nil {
		return false, nil
	}
	t.AssignedToID = &userID
	if t.AssignedAt == nil {
		t.AssignedAt = &at
	}
	if start && t.Status == domain.TicketStatusPending {
		t.Status = domain.TicketStatusInProgress
	}
	f.rows[ticketID] = t
	return true, nil
}

func (f *fakeTickets) UpdateLocked(_ context.Context, id string, fn repository.LockedUpdate) (*domain.Ticket, *domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	before, ok := f.rows[id]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	after, err := fn(before)
	if err != nil {
		return nil, nil, err
	}
	f.rows[id] = after
	return &before, &after, nil
}

func (f *fakeTickets) UpdateSLADeadline(_ context.Context, id string, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.SLADeadline = deadline
	f.rows[id] = t
	return nil
}

func (f *fakeTickets) ListCreatedBetween(_ context.Context, since, until time.Time) ([]*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Ticket
	for _, t := range f.rows {
		t := t
		if !t.CreatedAt.Before(since) && !t.CreatedAt.After(until) {
			out = append(out, &t)
		}
	}
	return out, nil
}

func (f *fakeTickets) ListByStatuses(_ context.Context, statuses []domain.TicketStatus) ([]*domain.Ticket, error) {
	return f.matching(access.Predicate{Statuses: statuses}), nil
}

func (f *fakeTickets) CountClosedByTechnician(_ context.Context, _ int) ([]report.TechnicianCount, error) {
	return f.leaders, nil
}

type fakeUsers struct {
	mu   sync.Mutex
	rows map[string]domain.User
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{rows: map[string]domain.User{}}
	for _, u := range users {
		f.rows[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.rows {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeUsers) SetSpecialties(_ context.Context, userID string, categoryIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Specialties = categoryIDs
	f.rows[userID] = u
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, userID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.Active = active
	f.rows[userID] = u
	return nil
}

type fakeLocations struct {
	mu   sync.Mutex
	rows map[string]domain.Location
}

func newFakeLocations(locs ...domain.Location) *fakeLocations {
	f := &fakeLocations{rows: map[string]domain.Location{}}
	for _, l := range locs {
		f.rows[l.ID] = l
	}
	return f
}

func (f *fakeLocations) Create(_ context.Context, loc *domain.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc.ID = uuid.NewString()
	f.rows[loc.ID] = *loc
	return nil
}

func (f *fakeLocations) Update(_ context.Context, loc *domain.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[loc.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.rows[loc.ID] = *loc
	return nil
}

func (f *fakeLocations) GetByID(_ context.Context, id string) (*domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &l, nil
}

func (f *fakeLocations) List(_ context.Context, activeOnly bool) ([]domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Location
	for _, l := range f.rows {
		if activeOnly && !l.Active {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type fakeCategories struct {
	mu   sync.Mutex
	rows map[string]domain.Category
}

func newFakeCategories(cats ...domain.Category) *fakeCategories {
	f := &fakeCategories{rows: map[string]domain.Category{}}
	for _, c := range cats {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCategories) Create(_ context.Context, cat *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat.ID = uuid.NewString()
	f.rows[cat.ID] = *cat
	return nil
}

func (f *fakeCategories) Update(_ context.Context, cat *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[cat.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.rows[cat.ID] = *cat
	return nil
}

func (f *fakeCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCategories) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Category
	for _, c := range f.rows {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeComments struct {
	mu   sync.Mutex
	rows []domain.Comment
}

func (f *fakeComments) Create(_ context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment.ID = uuid.NewString()
	f.rows = append(f.rows, *comment)
	return nil
}

func (f *fakeComments) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Comment
	for _, c := range f.rows {
		if c.TicketID != ticketID || (c.IsInternal && !includeInternal) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type fakeHistory struct {
	mu   sync.Mutex
	rows []domain.TicketHistory
}

func (f *fakeHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h.ID = uuid.NewString()
	f.rows = append(f.rows, *h)
	return nil
}

func (f *fakeHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range f.rows {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHistory) count(changeType domain.TicketChangeType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.rows {
		if h.ChangeType == changeType {
			n++
		}
	}
	return n
}

type fakeDevices struct {
	mu   sync.Mutex
	rows map[string]domain.Device
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{rows: map[string]domain.Device{}}
}

func (f *fakeDevices) Upsert(_ context.Context, d *domain.Device) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.rows[d.Token]; ok {
		d.ID = existing.ID
		d.RegisteredAt = existing.RegisteredAt
	} else {
		d.ID = uuid.NewString()
	}
	d.Active = true
	f.rows[d.Token] = *d
	return nil
}

func (f *fakeDevices) ListActiveByUser(_ context.Context, userID string) ([]domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Device
	for _, d := range f.rows {
		if d.UserID == userID && d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDevices) Deactivate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.rows[token]
	d.Active = false
	f.rows[token] = d
	return nil
}

func (f *fakeDevices) DeactivateForUser(_ context.Context, userID, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[token]
	if !ok || d.UserID != userID || !d.Active {
		return false, nil
	}
	d.Active = false
	f.rows[token] = d
	return true, nil
}

func (f *fakeDevices) Touch(_ context.Context, token string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.rows[token]
	d.LastUsedAt = at
	f.rows[token] = d
	return nil
}

func (f *fakeDevices) PruneStale(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, d := range f.rows {
		if d.Active && d.LastUsedAt.Before(before) {
			d.Active = false
			f.rows[k] = d
			n++
		}
	}
	return n, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return persistence.ErrCacheMiss
	}
	return json.Unmarshal(raw, dst)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deletes++
	return nil
}

// recorder captures events published synchronously.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecorder() (*recorder, events.Dispatcher) {
	r := &recorder{}
	d := events.NewInMemoryDispatcher()
	for _, t := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketCommentAdded,
		events.EventTicketSLAOverridden,
	} {
		d.Subscribe(t, func(_ context.Context, e events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
			return nil
		})
	}
	return r, d
}

func (r *recorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
