package service

import (
	"github.com/spec-kit/averias/internal/domain"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

var statusRank = map[domain.TicketStatus]int{
	domain.TicketStatusPending:    0,
	domain.TicketStatusInProgress: 1,
	domain.TicketStatusResolved:   2,
	domain.TicketStatusClosed:     3,
}

// CheckTransition enforces forward-only progression. CANCELLED is reachable
// from any non-terminal status; nothing leaves CLOSED or CANCELLED. Keeping
// the current status is always allowed so other fields can be edited.
func CheckTransition(from, to domain.TicketStatus) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return apperrors.NewInvalidTransition(string(from), string(to))
	}
	if to == domain.TicketStatusCancelled {
		return nil
	}
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	if !okFrom || !okTo {
		return apperrors.NewValidationError("unknown status", map[string]any{"from": from, "to": to})
	}
	if toRank < fromRank {
		return apperrors.NewInvalidTransition(string(from), string(to))
	}
	return nil
}
