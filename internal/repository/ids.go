package repository

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// checkID short-circuits lookups by ids that cannot be a primary key. Such an
// id matches no row, so it reports pgx.ErrNoRows without a round trip.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return pgx.ErrNoRows
	}
	return nil
}
