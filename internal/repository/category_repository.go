package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/averias/internal/domain"
)

// CategoryRepository manages failure categories.
type CategoryRepository interface {
	Create(ctx context.Context, cat *domain.Category) error
	Update(ctx context.Context, cat *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository constructs repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, cat *domain.Category) error {
	const query = `
        INSERT INTO categories (name, is_active, sla_hours)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, cat.Name, cat.Active, cat.SLAHours).Scan(&cat.ID, &cat.CreatedAt)
}

func (r *categoryRepository) Update(ctx context.Context, cat *domain.Category) error {
	const query = `UPDATE categories SET name=$1, is_active=$2, sla_hours=$3 WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, cat.Name, cat.Active, cat.SLAHours, cat.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	const query = `SELECT id, name, is_active, sla_hours, created_at FROM categories WHERE id=$1`
	var cat domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(&cat.ID, &cat.Name, &cat.Active, &cat.SLAHours, &cat.CreatedAt); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	const query = `
        SELECT id, name, is_active, sla_hours, created_at
        FROM categories WHERE (NOT $1 OR is_active) ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Active, &cat.SLAHours, &cat.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, cat)
	}
	return result, rows.Err()
}
