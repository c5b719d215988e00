package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/events"
	"github.com/spec-kit/averias/internal/report"
	"github.com/spec-kit/averias/internal/repository"
	"github.com/spec-kit/averias/internal/sla"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
	commentPreview  = 140
)

// TechnicianPicker chooses an assignee for a new ticket.
type TechnicianPicker interface {
	PickTechnician(ctx context.Context, categoryID *string, key string) (*domain.User, error)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	locations  repository.LocationRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	policy     *sla.Policy
	picker     TechnicianPicker
	cache      cacheInvalidator
	logger     *zap.Logger
	cfg        config.Config
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	LocationRepo repository.LocationRepository
	CategoryRepo repository.CategoryRepository
	UserRepo     repository.UserRepository
	HistoryRepo  repository.TicketHistoryRepository
	Dispatcher   events.Dispatcher
	Picker       TechnicianPicker
	Cache        cacheInvalidator
	Logger       *zap.Logger
	Config       config.Config
	Clock        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	LocationID   string
	CategoryID   *string
	Description  string
	Priority     string
	AssignedToID *string
	AutoAssign   *bool
}

// UpdateStatusInput carries a status change plus the optional fields edited with it.
// The assignee is only applied when SetAssignee is true; a nil AssignedToID then clears it.
type UpdateStatusInput struct {
	Status       string
	Solution     *string
	SetAssignee  bool
	AssignedToID *string
}

// TicketPage is one page of a role-scoped listing.
type TicketPage struct {
	Tickets  []domain.Ticket
	Total    int
	Page     int
	PageSize int
}

// TicketDetail is a ticket with everything the detail view renders.
type TicketDetail struct {
	Ticket      *domain.Ticket
	Comments    []domain.Comment
	History     []domain.TicketHistory
	Permissions access.Permissions
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		locations:  deps.LocationRepo,
		categories: deps.CategoryRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		policy:     sla.NewPolicy(deps.Config.SLA),
		picker:     deps.Picker,
		cache:      deps.Cache,
		logger:     logger,
		cfg:        deps.Config,
		now:        clock,
	}
}

// Create files a new ticket on behalf of an admin or dispatcher.
func (s *TicketService) Create(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	if !access.CanCreate(actor) {
		return nil, apperrors.NewPermissionDenied("your role cannot create tickets")
	}
	priority, ok := domain.ParseTicketPriority(input.Priority)
	if !ok {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}

	loc, err := s.locations.GetByID(ctx, input.LocationID)
	if err != nil {
		return nil, lookupErr(err, "location", input.LocationID)
	}
	if !loc.Active {
		return nil, apperrors.NewValidationError("location is inactive", map[string]any{"location_id": loc.ID})
	}
	var cat *domain.Category
	if input.CategoryID != nil && *input.CategoryID != "" {
		cat, err = s.categories.GetByID(ctx, *input.CategoryID)
		if err != nil {
			return nil, lookupErr(err, "category", *input.CategoryID)
		}
		if !cat.Active {
			return nil, apperrors.NewValidationError("category is inactive", map[string]any{"category_id": cat.ID})
		}
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		Number:       generateTicketNumber(),
		Description:  description,
		LocationID:   loc.ID,
		LocationCode: loc.Code,
		LocationName: loc.Name,
		Status:       domain.TicketStatusPending,
		Priority:     priority,
		CreatedByID:  actor.ActorID(),
		CreatedAt:    now,
		UpdatedAt:    now,
		SLADeadline:  s.policy.Deadline(now, priority, cat),
	}
	if cat != nil {
		ticket.CategoryID = &cat.ID
		ticket.CategoryName = cat.Name
	}
	ticket.Title = BuildTitle(ticket.CategoryName, description)

	assignee, err := s.resolveCreateAssignee(ctx, ticket, input)
	if err != nil {
		return nil, err
	}
	if assignee != nil {
		id := assignee.ID
		at := now
		ticket.AssignedToID = &id
		ticket.AssignedAt = &at
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("number", ticket.Number),
		zap.String("user_id", actor.ActorID()))

	if ticket.AssignedToID != nil {
		recordHistory(ctx, s.history, s.logger, assigneeHistory(ticket.ID, actor.ActorID(), nil, ticket.AssignedToID))
	}
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketCreated, ticket.ID, eventActor(actor),
		events.TicketCreatedPayload{Ticket: *ticket}))
	s.invalidate(ctx)
	return ticket, nil
}

func (s *TicketService) resolveCreateAssignee(ctx context.Context, ticket *domain.Ticket, input TicketCreateInput) (*domain.User, error) {
	if input.AssignedToID != nil && *input.AssignedToID != "" {
		return s.requireTechnician(ctx, *input.AssignedToID)
	}
	auto := s.cfg.Tickets.AutoAssignDefault
	if input.AutoAssign != nil {
		auto = *input.AutoAssign
	}
	if !auto || s.picker == nil {
		return nil, nil
	}
	tech, err := s.picker.PickTechnician(ctx, ticket.CategoryID, ticket.Number)
	if err != nil {
		return nil, err
	}
	if tech == nil {
		s.logger.Info("no technician available for auto-assign", zap.String("number", ticket.Number))
	}
	return tech, nil
}

func (s *TicketService) requireTechnician(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "user", userID)
	}
	if !u.Active || u.Role != domain.RoleTechnician {
		return nil, apperrors.NewValidationError("assignee must be an active technician", map[string]any{"user_id": userID})
	}
	return u, nil
}

// Get returns the ticket with its comments, history and the caller's permissions.
func (s *TicketService) Get(ctx context.Context, user *domain.User, ticketID string) (*TicketDetail, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}
	if !access.CanView(actor, ticket) {
		return nil, apperrors.NewPermissionDenied("you cannot view this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, access.CanSeeInternal(actor))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{
		Ticket:      ticket,
		Comments:    comments,
		History:     history,
		Permissions: access.PermissionsFor(actor, ticket),
	}, nil
}

// List returns the caller's role-scoped tickets, newest first.
func (s *TicketService) List(ctx context.Context, user *domain.User, view access.View, page, pageSize int) (*TicketPage, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	tickets, total, err := s.tickets.List(ctx, repository.TicketFilter{
		Predicate: access.ListPredicate(actor, view),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, PageSize: pageSize}, nil
}

// UpdateStatus applies a status change under a row lock. Only admins may
// reassign; for anyone else the assignee is put back to its locked value.
func (s *TicketService) UpdateStatus(ctx context.Context, user *domain.User, ticketID string, input UpdateStatusInput) (*domain.Ticket, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	target, ok := domain.ParseTicketStatus(input.Status)
	if !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": input.Status})
	}
	if input.SetAssignee && access.CanReassign(actor) && input.AssignedToID != nil && *input.AssignedToID != "" {
		if _, err := s.requireTechnician(ctx, *input.AssignedToID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	before, after, err := s.tickets.UpdateLocked(ctx, ticketID, func(current domain.Ticket) (domain.Ticket, error) {
		if !access.CanChangeStatus(actor, &current) {
			return current, apperrors.NewPermissionDenied("you cannot change the status of this ticket")
		}
		if err := CheckTransition(current.Status, target); err != nil {
			return current, err
		}
		next := current
		next.Status = target
		if input.Solution != nil {
			next.Solution = strings.TrimSpace(*input.Solution)
		}
		if input.SetAssignee {
			next.AssignedToID = input.AssignedToID
			if next.AssignedToID != nil && *next.AssignedToID == "" {
				next.AssignedToID = nil
			}
		}
		if !access.CanReassign(actor) {
			next.AssignedToID = current.AssignedToID
		}
		if next.IsAssigned() && next.AssignedAt == nil {
			at := now
			next.AssignedAt = &at
		}
		if target == domain.TicketStatusResolved && next.ResolvedAt == nil {
			at := now
			next.ResolvedAt = &at
		}
		if target == domain.TicketStatusClosed && next.ClosedAt == nil {
			at := now
			next.ClosedAt = &at
		}
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}

	if before.Status != after.Status {
		recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
			TicketID:    after.ID,
			ChangedByID: stringPtr(actor.ActorID()),
			ChangeType:  domain.ChangeTypeStatus,
			OldValue:    map[string]any{"status": before.Status},
			NewValue:    map[string]any{"status": after.Status},
		})
		publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketStatusChanged, after.ID, eventActor(actor),
			events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status}))
	}
	if !sameAssignee(before.AssignedToID, after.AssignedToID) {
		recordHistory(ctx, s.history, s.logger, assigneeHistory(after.ID, actor.ActorID(), before.AssignedToID, after.AssignedToID))
		publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketAssigned, after.ID, eventActor(actor),
			events.TicketAssignedPayload{OldAssigneeID: before.AssignedToID, NewAssigneeID: after.AssignedToID}))
	}
	s.invalidate(ctx)
	return after, nil
}

// AddComment appends a comment. Dispatchers cannot post internal notes.
func (s *TicketService) AddComment(ctx context.Context, user *domain.User, ticketID, body string, isInternal bool) (*domain.Comment, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}
	if !access.CanComment(actor, ticket) {
		return nil, apperrors.NewPermissionDenied("you cannot comment on this ticket")
	}
	if isInternal && !access.CanSeeInternal(actor) {
		return nil, apperrors.NewPermissionDenied("your role cannot post internal comments")
	}
	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ActorID(),
		AuthorName: user.DisplayName(),
		Body:       body,
		IsInternal: isInternal,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketCommentAdded, ticket.ID, eventActor(actor),
		events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			IsInternal:  comment.IsInternal,
			BodyPreview: stringPreview(comment.Body, commentPreview),
		}))
	return comment, nil
}

// OverrideSLADeadline lets an admin move a ticket's deadline.
func (s *TicketService) OverrideSLADeadline(ctx context.Context, user *domain.User, ticketID string, deadline time.Time) (*domain.Ticket, error) {
	actor, err := actorOf(user)
	if err != nil {
		return nil, err
	}
	if !access.CanReassign(actor) {
		return nil, apperrors.NewPermissionDenied("only admins can change SLA deadlines")
	}
	if deadline.IsZero() {
		return nil, apperrors.NewValidationError("deadline is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}
	if ticket.Status.Terminal() {
		return nil, apperrors.NewConflict("ticket is no longer open", map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
	}
	deadline = deadline.UTC()
	old := ticket.SLADeadline
	if err := s.tickets.UpdateSLADeadline(ctx, ticket.ID, deadline); err != nil {
		return nil, lookupErr(err, "ticket", ticketID)
	}
	ticket.SLADeadline = deadline
	recordHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:    ticket.ID,
		ChangedByID: stringPtr(actor.ActorID()),
		ChangeType:  domain.ChangeTypeSLADeadline,
		OldValue:    map[string]any{"sla_deadline": old},
		NewValue:    map[string]any{"sla_deadline": deadline},
	})
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketSLAOverridden, ticket.ID, eventActor(actor),
		events.TicketSLAOverriddenPayload{OldDeadline: old, NewDeadline: deadline}))
	s.invalidate(ctx)
	return ticket, nil
}

// Dashboard summarizes the open tickets the caller can see.
func (s *TicketService) Dashboard(ctx context.Context, user *domain.User) (report.OpenSummary, error) {
	actor, err := actorOf(user)
	if err != nil {
		return report.OpenSummary{}, err
	}
	p := access.DashboardPredicate(actor)
	p.Statuses = report.OpenStates()
	tickets, err := s.tickets.ListMatching(ctx, p)
	if err != nil {
		return report.OpenSummary{}, apperrors.MapError(err)
	}
	return report.SummarizeOpen(tickets, s.now().UTC(), s.cfg.SLA.DueSoon()), nil
}

func (s *TicketService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func assigneeHistory(ticketID, actorID string, oldAssignee, newAssignee *string) *domain.TicketHistory {
	return &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: stringPtr(actorID),
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue:    map[string]any{"assigned_to_id": oldAssignee},
		NewValue:    map[string]any{"assigned_to_id": newAssignee},
	}
}

func stringPtr(v string) *string {
	return &v
}
