// Package stream models the custom-command webhook payload exchanged with the chat platform.
package stream

import (
	"encoding/json"
	"fmt"
)

// MessageType is the platform message type.
type MessageType string

const (
	// TypeEphemeral messages are shown to the invoking user only and never stored.
	TypeEphemeral MessageType = "ephemeral"
	// TypeRegular messages are persisted to channel history.
	TypeRegular MessageType = "regular"
	// TypeError messages render as an error to the invoking user.
	TypeError MessageType = "error"
)

// Message is the message under construction. Fields the service does not model are
// kept verbatim and written back on encode.
type Message struct {
	Command string
	Args    string
	Text    string
	Type    MessageType
	MML     string
	// Phone is scratch state carried between wizard steps; it must be empty on regular messages.
	Phone string

	extra map[string]json.RawMessage
}

var messageKeys = []string{"command", "args", "text", "type", "mml", "phone"}

// UnmarshalJSON decodes known fields and retains the rest.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*m = Message{}
		return nil
	}
	targets := map[string]*string{
		"command": &m.Command,
		"args":    &m.Args,
		"text":    &m.Text,
		"mml":     &m.MML,
		"phone":   &m.Phone,
	}
	for key, dst := range targets {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("message.%s: %w", key, err)
			}
		}
	}
	if v, ok := raw["type"]; ok {
		var t string
		if err := json.Unmarshal(v, &t); err != nil {
			return fmt.Errorf("message.type: %w", err)
		}
		m.Type = MessageType(t)
	}
	for _, key := range messageKeys {
		delete(raw, key)
	}
	m.extra = raw
	return nil
}

// MarshalJSON writes retained fields plus the modelled ones. Empty scratch and markup
// fields are omitted so a cleared value disappears from the payload.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+len(messageKeys))
	for k, v := range m.extra {
		out[k] = v
	}
	if m.Command != "" {
		out["command"] = m.Command
	}
	if m.Args != "" {
		out["args"] = m.Args
	}
	out["text"] = m.Text
	if m.Type != "" {
		out["type"] = string(m.Type)
	}
	if m.MML != "" {
		out["mml"] = m.MML
	}
	if m.Phone != "" {
		out["phone"] = m.Phone
	}
	return json.Marshal(out)
}

// Extra returns a retained field that the service does not model.
func (m Message) Extra(key string) (json.RawMessage, bool) {
	v, ok := m.extra[key]
	return v, ok
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	c := m
	if m.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(m.extra))
		for k, v := range m.extra {
			c.extra[k] = v
		}
	}
	return c
}
