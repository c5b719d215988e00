package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/averias/internal/domain"
)

// LocationRepository manages location persistence.
type LocationRepository interface {
	Create(ctx context.Context, loc *domain.Location) error
	Update(ctx context.Context, loc *domain.Location) error
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Location, error)
}

type locationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository builds the repository.
func NewLocationRepository(pool *pgxpool.Pool) LocationRepository {
	return &locationRepository{pool: pool}
}

func (r *locationRepository) Create(ctx context.Context, loc *domain.Location) error {
	const query = `
        INSERT INTO locations (code, name, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		loc.Code,
		loc.Name,
		loc.Active,
	).Scan(&loc.ID, &loc.CreatedAt)
}

func (r *locationRepository) Update(ctx context.Context, loc *domain.Location) error {
	const query = `UPDATE locations SET code=$1, name=$2, is_active=$3 WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, loc.Code, loc.Name, loc.Active, loc.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const query = `SELECT id, code, name, is_active, created_at FROM locations WHERE id=$1`
	var loc domain.Location
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&loc.ID,
		&loc.Code,
		&loc.Name,
		&loc.Active,
		&loc.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *locationRepository) List(ctx context.Context, activeOnly bool) ([]domain.Location, error) {
	const query = `
        SELECT id, code, name, is_active, created_at
        FROM locations WHERE (NOT $1 OR is_active) ORDER BY code ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Location
	for rows.Next() {
		var loc domain.Location
		if err := rows.Scan(&loc.ID, &loc.Code, &loc.Name, &loc.Active, &loc.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, loc)
	}
	return result, rows.Err()
}
