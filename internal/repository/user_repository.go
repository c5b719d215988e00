package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/averias/internal/domain"
)

// UserFilter defines query params for user listing.
type UserFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// UserRepository defines persistence access for users and their specialties.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	SetSpecialties(ctx context.Context, userID string, categoryIDs []string) error
	SetActive(ctx context.Context, userID string, active bool) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `
        u.id, u.username, u.full_name, u.email, u.phone, u.whatsapp, u.role, u.is_active,
        COALESCE(ARRAY(SELECT us.category_id::text FROM user_specialties us WHERE us.user_id = u.id ORDER BY us.category_id), '{}'),
        u.created_at, u.updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const query = `
        INSERT INTO users (username, full_name, email, phone, whatsapp, role, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		user.Username,
		user.FullName,
		user.Email,
		user.Phone,
		user.WhatsApp,
		user.Role,
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}
	if err := replaceSpecialties(ctx, tx, user.ID, user.Specialties); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET full_name=$1, email=$2, phone=$3, whatsapp=$4, role=$5, is_active=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		user.FullName,
		user.Email,
		user.Phone,
		user.WhatsApp,
		user.Role,
		user.Active,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE LOWER(u.username)=LOWER($1)`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("u.role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("u.is_active=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM users u WHERE %s ORDER BY u.username ASC LIMIT %d OFFSET %d`,
		userColumns, strings.Join(clauses, " AND "), limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) SetSpecialties(ctx context.Context, userID string, categoryIDs []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT TRUE FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&exists); err != nil {
		return err
	}
	if err := replaceSpecialties(ctx, tx, userID, categoryIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *userRepository) SetActive(ctx context.Context, userID string, active bool) error {
	if err := checkID(userID); err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func replaceSpecialties(ctx context.Context, tx pgx.Tx, userID string, categoryIDs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM user_specialties WHERE user_id=$1`, userID); err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	const insert = `
        INSERT INTO user_specialties (user_id, category_id)
        SELECT $1, UNNEST($2::uuid[])
        ON CONFLICT DO NOTHING`
	_, err := tx.Exec(ctx, insert, userID, categoryIDs)
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.Email,
		&user.Phone,
		&user.WhatsApp,
		&user.Role,
		&user.Active,
		&user.Specialties,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
