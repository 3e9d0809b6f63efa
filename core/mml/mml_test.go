package mml

import (
	"strings"
	"testing"
)

func TestCardRender(t *testing.T) {
	doc := Card(
		Input{Name: "phone", Label: "Phone", Placeholder: "e.g. 999-999-9999"},
		Button{Name: "action", Value: "submit", Label: "Submit"},
	)
	got, err := doc.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<mml type="card"><input name="phone" label="Phone" placeholder="e.g. 999-999-9999"></input><button name="action" value="submit">Submit</button></mml>`
	if got != want {
		t.Fatalf("render =\n%s\nwant\n%s", got, want)
	}
}

func TestSchedulerAndCalendarRender(t *testing.T) {
	got, err := Card(
		Text{Value: "Pick one:"},
		Scheduler{Name: "appointment", Duration: 30, Interval: 30, Selected: "2021-03-15T10:30:00.000Z"},
		Button{Name: "action", Value: "reserve", Icon: "add_alarm", Label: "Book"},
	).Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, part := range []string{
		`<text>Pick one:</text>`,
		`<scheduler name="appointment" duration="30" interval="30" selected="2021-03-15T10:30:00.000Z"></scheduler>`,
		`<button name="action" value="reserve" icon="add_alarm">Book</button>`,
	} {
		if !strings.Contains(got, part) {
			t.Fatalf("missing %s in %s", part, got)
		}
	}

	cal, err := New(AddToCalendar{Title: "Appointment", Start: "a", End: "b"}).Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if cal != `<mml><add_to_calendar title="Appointment" start="a" end="b"></add_to_calendar></mml>` {
		t.Fatalf("calendar = %s", cal)
	}
}

func TestRenderEscapesUserText(t *testing.T) {
	got, err := Card(Button{Name: "action", Value: "reserve", Label: `Book <b>"x"</b> & co`}).Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(got, "<b>") {
		t.Fatalf("label markup must be escaped: %s", got)
	}
	if !strings.Contains(got, "&amp; co") {
		t.Fatalf("ampersand must be escaped: %s", got)
	}
}
