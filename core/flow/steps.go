// Package flow implements the appointment wizard driven by the "appointment" custom command.
//
// No state is kept between requests. The current step is derived from the submitted
// form values and from scratch fields the previous step left on the message itself:
//
//	RequestPhone -> RequestSlot -> Reserve
//
// with Invalid as the sink for anything else.
package flow

import (
	"time"

	"github.com/m3rciful/apptbot/core/stream"
)

// Form field names submitted by the markup this package renders.
const (
	FieldPhone       = "phone"
	FieldAction      = "action"
	FieldAppointment = "appointment"

	ActionSubmit  = "submit"
	ActionReserve = "reserve"
)

// Step is the wizard step selected for one invocation. The concrete types are
// RequestPhone, RequestSlot, Reserve and Invalid.
type Step interface {
	Name() string
	isStep()
}

// RequestPhone asks for a phone number. Selected when no form was submitted.
type RequestPhone struct{}

// RequestSlot offers the time-slot scheduler after a phone number was submitted.
type RequestSlot struct {
	Phone string
}

// Reserve finalizes the booking for the chosen slot.
type Reserve struct {
	Phone       string
	Appointment string
	Start       time.Time
}

// Invalid is the error sink for unexpected or out-of-order submissions.
type Invalid struct {
	Reason string
}

func (RequestPhone) Name() string { return "request_phone" }
func (RequestSlot) Name() string  { return "request_slot" }
func (Reserve) Name() string      { return "reserve" }
func (Invalid) Name() string      { return "invalid" }

func (RequestPhone) isStep() {}
func (RequestSlot) isStep()  {}
func (Reserve) isStep()      {}
func (Invalid) isStep()      {}

// Classify selects the step for an invocation. Guards are checked in a fixed order so
// exactly one step matches: a submission carrying a phone is always treated as the
// phone step, whatever else it contains.
func Classify(msg stream.Message, form stream.FormData) Step {
	if form == nil {
		return RequestPhone{}
	}
	if phone := form.Get(FieldPhone); phone != "" {
		return RequestSlot{Phone: phone}
	}
	if form.Get(FieldAction) == ActionReserve {
		slot := form.Get(FieldAppointment)
		if slot == "" {
			return Invalid{Reason: "missing appointment"}
		}
		start, ok := parseSlot(slot)
		if !ok {
			return Invalid{Reason: "unparseable appointment"}
		}
		return Reserve{Phone: msg.Phone, Appointment: slot, Start: start}
	}
	return Invalid{Reason: "unexpected form data"}
}

// slotLayouts are tried in order; a bare date is midnight UTC.
var slotLayouts = []string{time.RFC3339Nano, time.DateOnly}

func parseSlot(v string) (time.Time, bool) {
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
