package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/apptbot/core/appointment"
	"github.com/m3rciful/apptbot/core/config"
	"github.com/m3rciful/apptbot/core/logger"
	"github.com/m3rciful/apptbot/core/mml"
	"github.com/m3rciful/apptbot/core/stream"
)

// CommandName is the custom command this flow answers.
const CommandName = "appointment"

// InvalidInputText is shown to the user when a submission does not fit any step.
const InvalidInputText = "invalid command or input"

// isoMillis matches the timestamps the scheduler submits.
const isoMillis = "2006-01-02T15:04:05.000Z"

// Options holds the fixed wording and timing of the wizard.
type Options struct {
	Duration    time.Duration
	DefaultSlot string
	Description string
	Location    string
}

// DefaultOptions returns the stock wizard settings.
func DefaultOptions() Options {
	return Options{
		Duration:    30 * time.Minute,
		DefaultSlot: "2021-03-15T10:30:00.000Z",
		Description: "Your appointment with stream",
		Location:    "Stream, Amsterdam",
	}
}

// OptionsFromConfig maps the flow section of the service config.
func OptionsFromConfig(cfg config.FlowConfig) Options {
	return Options{
		Duration:    time.Duration(cfg.DurationMinutes) * time.Minute,
		DefaultSlot: cfg.DefaultSlot,
		Description: cfg.Description,
		Location:    cfg.Location,
	}
}

// Result is the outcome of one step.
type Result struct {
	Step    Step
	Message stream.Message
	// Booking is set only by the Reserve step.
	Booking *appointment.Appointment
}

// Advance computes the next message for inv. It has no side effects: recording the
// booking is left to the caller.
func (o Options) Advance(inv stream.Invocation) Result {
	step := Classify(inv.Message, inv.FormData)
	msg := inv.Message.Clone()
	res := Result{Step: step}

	var doc mml.Document
	switch s := step.(type) {
	case RequestPhone:
		msg.Text = ""
		msg.Type = stream.TypeEphemeral
		doc = mml.Card(
			mml.Input{Name: FieldPhone, Label: "Please Enter your phone number", Placeholder: "e.g. 999-999-9999"},
			mml.Button{Name: FieldAction, Value: ActionSubmit, Label: "Submit"},
		)
	case RequestSlot:
		msg.Phone = s.Phone
		msg.Type = stream.TypeEphemeral
		doc = mml.Card(
			mml.Text{Value: "Please choose a time slot:"},
			mml.Scheduler{
				Name:     FieldAppointment,
				Duration: o.minutes(),
				Interval: o.minutes(),
				Selected: o.DefaultSlot,
			},
			mml.Button{Name: FieldAction, Value: ActionReserve, Icon: "add_alarm", Label: label("Book", msg.Args)},
		)
	case Reserve:
		end := s.Start.Add(o.Duration)
		res.Booking = &appointment.Appointment{
			Phone:    s.Phone,
			UserID:   inv.User.ID,
			Date:     s.Appointment,
			StartsAt: s.Start.UTC(),
			EndsAt:   end.UTC(),
		}
		msg.Type = stream.TypeRegular
		msg.Phone = ""
		doc = mml.New(mml.AddToCalendar{
			Title:       label("Appointment", msg.Args),
			Start:       s.Appointment,
			End:         end.UTC().Format(isoMillis),
			Description: o.Description,
			Location:    o.Location,
		})
	case Invalid:
		return Result{Step: step, Message: invalidMessage(msg)}
	}

	rendered, err := doc.Render()
	if err != nil {
		return Result{Step: Invalid{Reason: err.Error()}, Message: invalidMessage(msg)}
	}
	msg.MML = rendered
	res.Message = msg
	return res
}

func (o Options) minutes() int {
	return int(o.Duration / time.Minute)
}

func invalidMessage(msg stream.Message) stream.Message {
	msg.Type = stream.TypeError
	msg.Text = InvalidInputText
	msg.MML = ""
	msg.Phone = ""
	return msg
}

// label prefixes the command argument with verb; an empty argument yields the verb alone.
func label(verb, args string) string {
	return strings.TrimSpace(verb + " " + strings.TrimSpace(args))
}

// Engine runs the wizard for incoming invocations and records finished bookings.
type Engine struct {
	opts     Options
	recorder appointment.Recorder
	newID    func() uuid.UUID
}

// NewEngine builds an Engine. A nil recorder only logs bookings.
func NewEngine(opts Options, recorder appointment.Recorder) *Engine {
	if recorder == nil {
		recorder = appointment.LogRecorder{}
	}
	return &Engine{opts: opts, recorder: recorder, newID: uuid.New}
}

// Handle advances inv in place. A failed booking write is logged and does not change
// the reply: the user still sees the confirmation.
func (e *Engine) Handle(ctx context.Context, inv *stream.Invocation) error {
	if inv == nil {
		return fmt.Errorf("flow: nil invocation")
	}
	res := e.opts.Advance(*inv)

	attrs := []slog.Attr{
		slog.String("step", res.Step.Name()),
		slog.String("message_type", string(res.Message.Type)),
	}
	if bad, ok := res.Step.(Invalid); ok {
		attrs = append(attrs, slog.String("cause", bad.Reason))
	}

	if res.Booking != nil {
		booking := *res.Booking
		booking.ID = e.newID()
		start := time.Now()
		err := e.recorder.Record(ctx, booking)
		recAttrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("appointment_id", booking.ID.String()),
			slog.String("date", booking.Date),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			recAttrs = append(recAttrs, slog.String("err", err.Error()))
			logger.Error(ctx, logger.CompStore, "appointment.record", recAttrs...)
		} else {
			logger.Info(ctx, logger.CompStore, "appointment.record", recAttrs...)
		}
	}

	logger.Debug(ctx, logger.CompFlow, "flow.advanced", attrs...)
	inv.Message = res.Message
	return nil
}
