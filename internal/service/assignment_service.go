package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/events"
	"github.com/spec-kit/averias/internal/repository"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

const technicianScanLimit = 1000

// AssignmentService manages self-assignment and automatic assignment.
type AssignmentService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	cache      cacheInvalidator
	logger     *zap.Logger
	cfg        config.TicketsConfig
	now        func() time.Time
}

// AssignmentDependencies wires repositories for assignment.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Cache       cacheInvalidator
	Logger      *zap.Logger
	Config      config.TicketsConfig
	Clock       func() time.Time
}

// NewAssignmentService creates the assignment service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		logger:     logger,
		cfg:        deps.Config,
		now:        clock,
	}
}

// Take assigns an unassigned ticket to the calling technician. Concurrent
// takes race on a conditional update; exactly one wins.
func (s *AssignmentService) Take(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}
	if err := access.CheckTake(actor, ticket); err != nil {
		return nil, err
	}
	if ticket.AssignedTo(actor.ActorID()) {
		return ticket, nil
	}

	won, err := s.tickets.AssignIfUnassigned(ctx, ticket.ID, actor.ActorID(), s.now().UTC(), s.cfg.TakeAutoStart)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	current, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}
	if !won {
		if current.AssignedTo(actor.ActorID()) {
			return current, nil
		}
		return nil, apperrors.NewConflict("ticket is already assigned", map[string]any{"ticket_id": ticket.ID})
	}

	s.logger.Info("ticket taken",
		zap.String("ticket_id", current.ID),
		zap.String("user_id", actor.ActorID()))
	recordHistory(ctx, s.history, s.logger, assigneeHistory(current.ID, actor.ActorID(), nil, current.AssignedToID))
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketAssigned, current.ID, eventActor(actor),
		events.TicketAssignedPayload{NewAssigneeID: current.AssignedToID, SelfAssigned: true}))
	if ticket.Status != current.Status {
		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:    current.ID,
			ChangedByID: stringPtr(actor.ActorID()),
			ChangeType:  domain.ChangeTypeStatus,
			OldValue:    map[string]any{"status": ticket.Status},
			NewValue:    map[string]any{"status": current.Status},
		})
		publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketStatusChanged, current.ID, eventActor(actor),
			events.TicketStatusChangedPayload{OldStatus: ticket.Status, NewStatus: current.Status}))
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return current, nil
}

// PickTechnician selects an active technician covering categoryID. Specialists
// win over generalists; within a group the pick is a stable hash of key.
// A nil user with a nil error means nobody is eligible.
func (s *AssignmentService) PickTechnician(ctx context.Context, categoryID *string, key string) (*domain.User, error) {
	active := true
	role := domain.RoleTechnician
	users, err := s.users.List(ctx, repository.UserFilter{
		Role:   &role,
		Active: &active,
		Limit:  technicianScanLimit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var specialists, generalists []domain.User
	for _, u := range users {
		tech := access.Technician{ID: u.ID, Specialties: u.Specialties}
		switch {
		case tech.Generalist():
			generalists = append(generalists, u)
		case access.CoversCategory(tech, categoryID):
			specialists = append(specialists, u)
		}
	}
	pool := specialists
	if len(pool) == 0 {
		pool = generalists
	}
	if len(pool) == 0 {
		return nil, nil
	}
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].CreatedAt.Before(pool[j].CreatedAt)
	})
	picked := pool[selectIndex(key, len(pool))]
	return &picked, nil
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
