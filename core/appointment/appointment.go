// Package appointment records finalized bookings.
package appointment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/apptbot/core/logger"
)

// Appointment is a finalized booking.
type Appointment struct {
	ID     uuid.UUID `db:"id"`
	Phone  string    `db:"phone"`
	UserID string    `db:"user_id"`
	// Date is the slot exactly as submitted by the scheduler.
	Date      string    `db:"date"`
	StartsAt  time.Time `db:"starts_at"`
	EndsAt    time.Time `db:"ends_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Recorder persists or forwards a finalized appointment. Implementations must be safe
// for concurrent use.
type Recorder interface {
	Record(ctx context.Context, a Appointment) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, a Appointment) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, a Appointment) error {
	return f(ctx, a)
}

// LogRecorder only logs the appointment.
type LogRecorder struct{}

// Record logs a.
func (LogRecorder) Record(ctx context.Context, a Appointment) error {
	logger.Info(ctx, logger.CompStore, "appointment.logged",
		slog.String("status", "ok"),
		slog.String("appointment_id", a.ID.String()),
		slog.String("user_id", a.UserID),
		slog.String("phone", a.Phone),
		slog.String("date", a.Date),
	)
	return nil
}

// Fanout records into every sink concurrently and joins their errors.
type Fanout []Recorder

// Record implements Recorder.
func (f Fanout) Record(ctx context.Context, a Appointment) error {
	if len(f) == 1 {
		return f[0].Record(ctx, a)
	}
	errs := make([]error, len(f))
	var wg sync.WaitGroup
	for i, r := range f {
		wg.Add(1)
		go func(i int, r Recorder) {
			defer wg.Done()
			errs[i] = r.Record(ctx, a)
		}(i, r)
	}
	wg.Wait()
	return errors.Join(errs...)
}
