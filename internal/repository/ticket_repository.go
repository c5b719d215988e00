package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/report"
)

// TicketFilter captures listing parameters. Predicate carries every access rule.
type TicketFilter struct {
	Predicate access.Predicate
	Limit     int
	Offset    int
}

// LockedUpdate receives the row as currently persisted and returns the row to write.
type LockedUpdate func(current domain.Ticket) (domain.Ticket, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	ListMatching(ctx context.Context, p access.Predicate) ([]*domain.Ticket, error)
	// AssignIfUnassigned sets the assignee only when none is set. The bool
	// reports whether this call won.
	AssignIfUnassigned(ctx context.Context, ticketID, userID string, at time.Time, start bool) (bool, error)
	// UpdateLocked runs fn against the row under a row lock and persists the result.
	UpdateLocked(ctx context.Context, id string, fn LockedUpdate) (before, after *domain.Ticket, err error)
	UpdateSLADeadline(ctx context.Context, id string, deadline time.Time) error
	ListCreatedBetween(ctx context.Context, since, until time.Time) ([]*domain.Ticket, error)
	ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]*domain.Ticket, error)
	CountClosedByTechnician(ctx context.Context, limit int) ([]report.TechnicianCount, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        t.id, t.number, t.title, t.description, t.location_id, l.code, l.name,
        t.category_id, COALESCE(c.name, ''), t.status, t.priority, t.created_by_id,
        t.assigned_to_id, t.solution, t.created_at, t.updated_at, t.assigned_at,
        t.resolved_at, t.closed_at, t.sla_deadline`

const ticketFrom = `
        FROM tickets t
        JOIN locations l ON l.id = t.location_id
        LEFT JOIN categories c ON c.id = t.category_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (number, title, description, location_id, category_id, status, priority,
            created_by_id, assigned_to_id, solution, created_at, assigned_at, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Number,
		ticket.Title,
		ticket.Description,
		ticket.LocationID,
		ticket.CategoryID,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedByID,
		ticket.AssignedToID,
		ticket.Solution,
		ticket.CreatedAt,
		ticket.AssignedAt,
		ticket.SLADeadline,
	).Scan(&ticket.ID, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE t.id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	where, args := whereFromPredicate(filter.Predicate, nil)

	var total int
	countQuery := `SELECT COUNT(*) FROM tickets t WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY t.created_at DESC, t.id DESC LIMIT %d OFFSET %d`,
		ticketColumns, ticketFrom, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) ListMatching(ctx context.Context, p access.Predicate) ([]*domain.Ticket, error) {
	where, args := whereFromPredicate(p, nil)
	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE ` + where + ` ORDER BY t.sla_deadline ASC, t.created_at DESC`
	return r.queryTickets(ctx, query, args...)
}

func (r *ticketRepository) AssignIfUnassigned(ctx context.Context, ticketID, userID string, at time.Time, start bool) (bool, error) {
	if err := checkID(ticketID); err != nil {
		return false, err
	}
	const query = `
        UPDATE tickets SET
            assigned_to_id=$2,
            assigned_at=COALESCE(assigned_at, $3),
            status=CASE WHEN $4 AND status='PENDING' THEN 'IN_PROGRESS' ELSE status END,
            updated_at=NOW()
        WHERE id=$1 AND assigned_to_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, ticketID, userID, at, start)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) UpdateLocked(ctx context.Context, id string, fn LockedUpdate) (*domain.Ticket, *domain.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, nil, err
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE t.id=$1 FOR UPDATE OF t`
	before, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, nil, err
	}

	after, err := fn(*before)
	if err != nil {
		return nil, nil, err
	}

	const update = `
        UPDATE tickets SET status=$1, solution=$2, assigned_to_id=$3, assigned_at=$4,
            resolved_at=$5, closed_at=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		after.Status,
		after.Solution,
		after.AssignedToID,
		after.AssignedAt,
		after.ResolvedAt,
		after.ClosedAt,
		before.ID,
	).Scan(&after.UpdatedAt); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return before, &after, nil
}

func (r *ticketRepository) UpdateSLADeadline(ctx context.Context, id string, deadline time.Time) error {
	if err := checkID(id); err != nil {
		return err
	}
	const query = `UPDATE tickets SET sla_deadline=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, deadline, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListCreatedBetween(ctx context.Context, since, until time.Time) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE t.created_at >= $1 AND t.created_at <= $2`
	return r.queryTickets(ctx, query, since, until)
}

func (r *ticketRepository) ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]*domain.Ticket, error) {
	if len(statuses) == 0 {
		return nil, errors.New("at least one status is required")
	}
	where, args := whereFromPredicate(access.Predicate{Statuses: statuses}, nil)
	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE ` + where
	return r.queryTickets(ctx, query, args...)
}

func (r *ticketRepository) CountClosedByTechnician(ctx context.Context, limit int) ([]report.TechnicianCount, error) {
	const query = `
        SELECT u.id, u.username, u.full_name, COUNT(t.id)
        FROM tickets t
        JOIN users u ON u.id = t.assigned_to_id
        WHERE t.status = 'CLOSED' AND u.role = 'TECNICO'
        GROUP BY u.id, u.username, u.full_name
        ORDER BY COUNT(t.id) DESC, u.username ASC
        LIMIT $1`
	if limit <= 0 {
		limit = report.DefaultTopTechnicians
	}
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []report.TechnicianCount
	for rows.Next() {
		var c report.TechnicianCount
		if err := rows.Scan(&c.UserID, &c.Username, &c.FullName, &c.Closed); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *ticketRepository) queryTickets(ctx context.Context, query string, args ...any) ([]*domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Title,
		&ticket.Description,
		&ticket.LocationID,
		&ticket.LocationCode,
		&ticket.LocationName,
		&ticket.CategoryID,
		&ticket.CategoryName,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedByID,
		&ticket.AssignedToID,
		&ticket.Solution,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.AssignedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.SLADeadline,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
