package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/averias/internal/access"
	"github.com/spec-kit/averias/internal/domain"
	"github.com/spec-kit/averias/internal/events"
	"github.com/spec-kit/averias/internal/repository"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

// cacheInvalidator drops derived data after a ticket write.
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

func actorOf(user *domain.User) (access.Actor, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return access.ActorFor(user)
}

func lookupErr(err error, resource, id string) error {
	if apperrors.IsMissingRow(err) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

func eventActor(a access.Actor) events.Actor {
	return events.Actor{UserID: a.ActorID(), Role: a.Role()}
}

func publish(ctx context.Context, d events.Dispatcher, logger *zap.Logger, event events.Event) {
	if d == nil {
		return
	}
	if err := d.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func recordHistory(ctx context.Context, repo repository.TicketHistoryRepository, logger *zap.Logger, entry *domain.TicketHistory) {
	if repo == nil {
		return
	}
	if err := repo.Create(ctx, entry); err != nil {
		logger.Error("record ticket history failed",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

// generateTicketNumber returns "AV-" followed by eight uppercase hex digits.
func generateTicketNumber() string {
	return "AV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

const titleSummaryRunes = 60

// BuildTitle derives "{category or 'Ticket'} - {summary}" from the description.
// Newlines collapse to spaces and the summary is cut at 60 runes with "...".
func BuildTitle(categoryName, description string) string {
	base := strings.TrimSpace(categoryName)
	if base == "" {
		base = "Ticket"
	}
	desc := strings.TrimSpace(description)
	desc = strings.ReplaceAll(desc, "\r\n", " ")
	desc = strings.ReplaceAll(desc, "\n", " ")
	if desc == "" {
		return base
	}
	summary := desc
	if utf8.RuneCountInString(desc) > titleSummaryRunes {
		summary = string([]rune(desc)[:titleSummaryRunes]) + "..."
	}
	return base + " - " + summary
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
