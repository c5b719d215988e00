package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/repository"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

const defaultPlatform = "android"

// DeviceService keeps each user's push targets.
type DeviceService struct {
	devices repository.DeviceRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewDeviceService constructs the service.
func NewDeviceService(devices repository.DeviceRepository, logger *zap.Logger) *DeviceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceService{devices: devices, logger: logger, now: time.Now}
}

// Register upserts token for the caller. A token moving between users follows the latest owner.
func (s *DeviceService) Register(ctx context.Context, user *domain.User, token, platform string) (*domain.Device, error) {
	if _, err := actorOf(user); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidationError("token is required", nil)
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		platform = defaultPlatform
	}
	now := s.now().UTC()
	device := &domain.Device{
		UserID:       user.ID,
		Token:        token,
		Platform:     platform,
		Active:       true,
		RegisteredAt: now,
		LastUsedAt:   now,
	}
	if err := s.devices.Upsert(ctx, device); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("device registered", zap.String("user_id", user.ID), zap.String("platform", platform))
	return device, nil
}

// Unregister deactivates one of the caller's tokens.
func (s *DeviceService) Unregister(ctx context.Context, user *domain.User, token string) error {
	if _, err := actorOf(user); err != nil {
		return err
	}
	ok, err := s.devices.DeactivateForUser(ctx, user.ID, strings.TrimSpace(token))
	if err != nil {
		return apperrors.MapError(err)
	}
	if !ok {
		return apperrors.NewNotFound("device", map[string]any{"user_id": user.ID})
	}
	return nil
}

// PruneStale deactivates devices not used since before.
func (s *DeviceService) PruneStale(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.devices.PruneStale(ctx, before)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if n > 0 {
		s.logger.Info("pruned stale devices", zap.Int64("count", n), zap.Time("before", before))
	}
	return n, nil
}
