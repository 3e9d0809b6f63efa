package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresStore writes appointments to the appointments table.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const insertAppointment = `
INSERT INTO appointments (id, phone, user_id, date, starts_at, ends_at, created_at)
VALUES (:id, :phone, :user_id, :date, :starts_at, :ends_at, :created_at)`

// Record inserts a single row. It is a one-shot write without retries.
func (s *PostgresStore) Record(ctx context.Context, a Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	if _, err := s.db.NamedExecContext(ctx, insertAppointment, a); err != nil {
		return fmt.Errorf("appointment: insert %s: %w", a.ID, err)
	}
	return nil
}

// ListByUser returns a user's appointments ordered by start time.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Appointment, error) {
	var out []Appointment
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, phone, user_id, date, starts_at, ends_at, created_at
		   FROM appointments WHERE user_id = $1 ORDER BY starts_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("appointment: list for %s: %w", userID, err)
	}
	return out, nil
}
