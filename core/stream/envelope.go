package stream

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// User identifies the member invoking the command.
type User struct {
	ID string `json:"id"`
}

// FormData holds values submitted from a previously rendered MML form.
// A nil FormData means the request carried no form submission at all.
type FormData map[string]string

// UnmarshalJSON never fails on shape. A null value leaves the form absent; any other
// value that is not an object becomes an empty form. Inside an object, false, 0, "" and
// null count as absent, and nested objects or arrays are dropped.
func (f *FormData) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("form_data: %w", err)
	}
	if v == nil {
		*f = nil
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		*f = FormData{}
		return nil
	}
	out := make(FormData, len(raw))
	for k, v := range raw {
		if s, ok := formValue(v); ok {
			out[k] = s
		}
	}
	*f = out
	return nil
}

func formValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, x != ""
	case bool:
		return "true", x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), x != 0
	default:
		return "", false
	}
}

// Get returns the value for key; absent keys yield "".
func (f FormData) Get(key string) string {
	return f[key]
}

// Invocation is one custom-command call: who invoked it, the message being built, and
// any form values submitted by a previous step.
type Invocation struct {
	User     User
	Message  Message
	FormData FormData
}

// Envelope is the decoded webhook body. The original bytes are kept so unhandled
// invocations can be echoed back unchanged.
type Envelope struct {
	Invocation

	body   []byte
	fields map[string]json.RawMessage
}

// DecodeEnvelope parses a webhook body.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("stream: decode envelope: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("stream: decode envelope: body is null")
	}
	env := &Envelope{body: body, fields: fields}
	if v, ok := fields["user"]; ok {
		if err := json.Unmarshal(v, &env.User); err != nil {
			return nil, fmt.Errorf("stream: decode user: %w", err)
		}
	}
	if v, ok := fields["message"]; ok {
		if err := json.Unmarshal(v, &env.Message); err != nil {
			return nil, fmt.Errorf("stream: decode message: %w", err)
		}
	}
	if v, ok := fields["form_data"]; ok {
		if err := json.Unmarshal(v, &env.FormData); err != nil {
			return nil, fmt.Errorf("stream: decode form_data: %w", err)
		}
	}
	return env, nil
}

// Body returns the request bytes exactly as received.
func (e *Envelope) Body() []byte {
	return e.body
}

// Encode renders the envelope with message replaced by msg; every other top-level
// field is written back as received.
func (e *Envelope) Encode(msg Message) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.fields)+1)
	for k, v := range e.fields {
		out[k] = v
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("stream: encode message: %w", err)
	}
	out["message"] = data
	return json.Marshal(out)
}
