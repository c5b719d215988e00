package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/averias/internal/domain"
)

// DeviceRepository manages push notification tokens.
type DeviceRepository interface {
	// Upsert registers token for the device's user, reactivating and
	// reassigning it if the token was already known.
	Upsert(ctx context.Context, device *domain.Device) error
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Deactivate(ctx context.Context, token string) error
	DeactivateForUser(ctx context.Context, userID, token string) (bool, error)
	Touch(ctx context.Context, token string, at time.Time) error
	PruneStale(ctx context.Context, before time.Time) (int64, error)
}

type deviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository constructs repository.
func NewDeviceRepository(pool *pgxpool.Pool) DeviceRepository {
	return &deviceRepository{pool: pool}
}

func (r *deviceRepository) Upsert(ctx context.Context, device *domain.Device) error {
	const query = `
        INSERT INTO devices (user_id, token, platform, is_active, last_used_at)
        VALUES ($1,$2,$3,TRUE,NOW())
        ON CONFLICT (token) DO UPDATE
            SET user_id=EXCLUDED.user_id, platform=EXCLUDED.platform, is_active=TRUE, last_used_at=NOW()
        RETURNING id, is_active, registered_at, last_used_at`
	return r.pool.QueryRow(ctx, query,
		device.UserID,
		device.Token,
		device.Platform,
	).Scan(&device.ID, &device.Active, &device.RegisteredAt, &device.LastUsedAt)
}

func (r *deviceRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	const query = `
        SELECT id, user_id, token, platform, is_active, registered_at, last_used_at
        FROM devices WHERE user_id=$1 AND is_active ORDER BY last_used_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.Token, &d.Platform, &d.Active, &d.RegisteredAt, &d.LastUsedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *deviceRepository) Deactivate(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `UPDATE devices SET is_active=FALSE WHERE token=$1`, token)
	return err
}

func (r *deviceRepository) DeactivateForUser(ctx context.Context, userID, token string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE devices SET is_active=FALSE WHERE token=$1 AND user_id=$2`, token, userID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *deviceRepository) Touch(ctx context.Context, token string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE devices SET last_used_at=$1 WHERE token=$2`, at, token)
	return err
}

func (r *deviceRepository) PruneStale(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE devices SET is_active=FALSE WHERE is_active AND last_used_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
