package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/averias/internal/domain"
	apperrors "github.com/spec-kit/averias/pkg/util/errorutil"
)

func TestCheckTransition(t *testing.T) {
	allowed := [][2]domain.TicketStatus{
		{domain.TicketStatusPending, domain.TicketStatusInProgress},
		{domain.TicketStatusPending, domain.TicketStatusResolved},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved},
		{domain.TicketStatusResolved, domain.TicketStatusClosed},
		{domain.TicketStatusPending, domain.TicketStatusCancelled},
		{domain.TicketStatusInProgress, domain.TicketStatusCancelled},
		{domain.TicketStatusResolved, domain.TicketStatusCancelled},
		{domain.TicketStatusClosed, domain.TicketStatusClosed},
		{domain.TicketStatusInProgress, domain.TicketStatusInProgress},
	}
	for _, pair := range allowed {
		assert.NoError(t, CheckTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	rejected := [][2]domain.TicketStatus{
		{domain.TicketStatusClosed, domain.TicketStatusPending},
		{domain.TicketStatusClosed, domain.TicketStatusCancelled},
		{domain.TicketStatusCancelled, domain.TicketStatusPending},
		{domain.TicketStatusCancelled, domain.TicketStatusClosed},
		{domain.TicketStatusResolved, domain.TicketStatusInProgress},
		{domain.TicketStatusInProgress, domain.TicketStatusPending},
	}
	for _, pair := range rejected {
		err := CheckTransition(pair[0], pair[1])
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "%s -> %s", pair[0], pair[1])
	}
}

func TestBuildTitle(t *testing.T) {
	assert.Equal(t, "Ticket", BuildTitle("", "   "))
	assert.Equal(t, "Impresora - no imprime", BuildTitle("Impresora", "no imprime"))
	assert.Equal(t, "Ticket - linea uno linea dos", BuildTitle("", "linea uno\nlinea dos"))

	long := "ñ" + string(make([]rune, 0)) + "0123456789012345678901234567890123456789012345678901234567890123456789"
	title := BuildTitle("Red", long)
	assert.Equal(t, "Red - "+string([]rune(long)[:60])+"...", title)

	exact := "012345678901234567890123456789012345678901234567890123456789"
	assert.Equal(t, "Red - "+exact, BuildTitle("Red", exact))
}

func TestGenerateTicketNumber(t *testing.T) {
	n := generateTicketNumber()
	assert.Regexp(t, `^AV-[0-9A-F]{8}$`, n)
	assert.NotEqual(t, n, generateTicketNumber())
}
