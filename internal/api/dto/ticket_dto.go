package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/report"
	"github.com/spec-kit/averias/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	LocationID   string  `json:"location_id" validate:"required"`
	CategoryID   *string `json:"category_id"`
	Description  string  `json:"description" validate:"required,max=4000"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT low medium high urgent"`
	AssignedToID *string `json:"assigned_to_id"`
	AutoAssign   *bool   `json:"auto_assign"`
}

// Input maps the request onto the service input.
func (r CreateTicketRequest) Input() service.TicketCreateInput {
	return service.TicketCreateInput{
		LocationID:   r.LocationID,
		CategoryID:   r.CategoryID,
		Description:  r.Description,
		Priority:     r.Priority,
		AssignedToID: r.AssignedToID,
		AutoAssign:   r.AutoAssign,
	}
}

// OptionalString tells an absent field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the key is present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status     string         `json:"status" validate:"required"`
	Solution   *string        `json:"solution" validate:"omitempty,max=4000"`
	AssignedTo OptionalString `json:"assigned_to_id"`
}

// Input maps the request onto the service input.
func (r UpdateStatusRequest) Input() service.UpdateStatusInput {
	return service.UpdateStatusInput{
		Status:       r.Status,
		Solution:     r.Solution,
		SetAssignee:  r.AssignedTo.Set,
		AssignedToID: r.AssignedTo.Value,
	}
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body       string `json:"body" validate:"required,max=4000"`
	IsInternal bool   `json:"is_internal"`
}

// OverrideSLARequest payload.
type OverrideSLARequest struct {
	Deadline time.Time `json:"sla_deadline" validate:"required"`
}

// LocationRef is the embedded location on a ticket.
type LocationRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// CategoryRef is the embedded category on a ticket.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	Number       string                `json:"number"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Location     LocationRef           `json:"location"`
	Category     *CategoryRef          `json:"category"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedByID  string                `json:"created_by_id"`
	AssignedToID *string               `json:"assigned_to_id"`
	Solution     string                `json:"solution,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	AssignedAt   *time.Time            `json:"assigned_at"`
	ResolvedAt   *time.Time            `json:"resolved_at"`
	ClosedAt     *time.Time            `json:"closed_at"`
	SLADeadline  time.Time             `json:"sla_deadline"`
	Overdue      bool                  `json:"overdue"`
}

// NewTicketResponse maps a ticket; overdue is evaluated at now.
func NewTicketResponse(t *domain.Ticket, now time.Time) TicketResponse {
	resp := TicketResponse{
		ID:           t.ID,
		Number:       t.Number,
		Title:        t.Title,
		Description:  t.Description,
		Location:     LocationRef{ID: t.LocationID, Code: t.LocationCode, Name: t.LocationName},
		Status:       t.Status,
		Priority:     t.Priority,
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
		Solution:     t.Solution,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		AssignedAt:   t.AssignedAt,
		ResolvedAt:   t.ResolvedAt,
		ClosedAt:     t.ClosedAt,
		SLADeadline:  t.SLADeadline,
		Overdue:      !t.Status.Terminal() && t.Status != domain.TicketStatusResolved && t.Overdue(now),
	}
	if t.CategoryID != nil {
		resp.Category = &CategoryRef{ID: *t.CategoryID, Name: t.CategoryName}
	}
	return resp
}

// CommentResponse is the wire form of a comment.
type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Body:       c.Body,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID            string                  `json:"id"`
	ChangedByID   *string                 `json:"changed_by_id"`
	ChangedByName string                  `json:"changed_by_name,omitempty"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	Comments    []CommentResponse  `json:"comments"`
	History     []HistoryResponse  `json:"history"`
	Permissions access.Permissions `json:"permissions"`
}

// NewTicketDetailResponse maps the detail view.
func NewTicketDetailResponse(d *service.TicketDetail, now time.Time) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: NewTicketResponse(d.Ticket, now),
		Comments:       make([]CommentResponse, 0, len(d.Comments)),
		History:        make([]HistoryResponse, 0, len(d.History)),
		Permissions:    d.Permissions,
	}
	for i := range d.Comments {
		resp.Comments = append(resp.Comments, NewCommentResponse(&d.Comments[i]))
	}
	for _, h := range d.History {
		resp.History = append(resp.History, HistoryResponse{
			ID:            h.ID,
			ChangedByID:   h.ChangedByID,
			ChangedByName: h.ChangedByName,
			ChangeType:    h.ChangeType,
			OldValue:      h.OldValue,
			NewValue:      h.NewValue,
			CreatedAt:     h.CreatedAt,
		})
	}
	return resp
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Items    []TicketResponse `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// NewTicketListResponse maps a listing page.
func NewTicketListResponse(p *service.TicketPage, now time.Time) TicketListResponse {
	items := make([]TicketResponse, 0, len(p.Tickets))
	for i := range p.Tickets {
		items = append(items, NewTicketResponse(&p.Tickets[i], now))
	}
	return TicketListResponse{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

// DashboardResponse is the role-scoped home view.
type DashboardResponse struct {
	Total   int              `json:"total"`
	Overdue int              `json:"overdue"`
	DueSoon int              `json:"due_soon"`
	Tickets []TicketResponse `json:"tickets"`
}

// NewDashboardResponse maps the open summary.
func NewDashboardResponse(s report.OpenSummary, now time.Time) DashboardResponse {
	resp := DashboardResponse{
		Total:   s.Total,
		Overdue: s.Overdue,
		DueSoon: s.DueSoon,
		Tickets: make([]TicketResponse, 0, len(s.Tickets)),
	}
	for _, t := range s.Tickets {
		resp.Tickets = append(resp.Tickets, NewTicketResponse(t, now))
	}
	return resp
}
