package stream

import (
	"encoding/json"
	"testing"
)

const sampleBody = `{"type":"custom_command","user":{"id":"jim","name":"Jim"},"message":{"id":"m1","command":"appointment","args":"checkup","text":"/appointment checkup","type":"ephemeral","attachments":[]},"form_data":{"phone":"555-1234","count":3,"ok":true,"skip":null}}`

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(sampleBody))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.User.ID != "jim" {
		t.Fatalf("user id = %q", env.User.ID)
	}
	msg := env.Message
	if msg.Command != "appointment" || msg.Args != "checkup" || msg.Type != TypeEphemeral {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if _, ok := msg.Extra("attachments"); !ok {
		t.Fatal("unknown message fields should be retained")
	}
	want := FormData{"phone": "555-1234", "count": "3", "ok": "true"}
	if len(env.FormData) != len(want) {
		t.Fatalf("form data = %v", env.FormData)
	}
	for k, v := range want {
		if env.FormData.Get(k) != v {
			t.Fatalf("form_data[%s] = %q, want %q", k, env.FormData.Get(k), v)
		}
	}
}

func TestDecodeEnvelopeFormDataPresence(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantNil bool
	}{
		{"absent", `{"message":{"command":"appointment"}}`, true},
		{"null", `{"message":{"command":"appointment"},"form_data":null}`, true},
		{"empty object", `{"message":{"command":"appointment"},"form_data":{}}`, false},
		{"string", `{"message":{"command":"appointment"},"form_data":"oops"}`, false},
		{"array", `{"message":{"command":"appointment"},"form_data":[1,2]}`, false},
		{"number", `{"message":{"command":"appointment"},"form_data":3}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tc.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if (env.FormData == nil) != tc.wantNil {
				t.Fatalf("FormData nil = %v, want %v", env.FormData == nil, tc.wantNil)
			}
		})
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	for _, body := range []string{`not json`, `null`, `{"message":{"command":7}}`} {
		if _, err := DecodeEnvelope([]byte(body)); err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestEncodeReplacesOnlyMessage(t *testing.T) {
	env, err := DecodeEnvelope([]byte(sampleBody))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	msg := env.Message.Clone()
	msg.Type = TypeRegular
	msg.Phone = ""
	msg.MML = "<mml></mml>"

	data, err := env.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(out["type"]) != `"custom_command"` {
		t.Fatalf("top-level type lost: %s", out["type"])
	}
	if string(out["user"]) != `{"id":"jim","name":"Jim"}` {
		t.Fatalf("user not echoed verbatim: %s", out["user"])
	}
	var m map[string]any
	if err := json.Unmarshal(out["message"], &m); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if m["type"] != "regular" || m["mml"] != "<mml></mml>" || m["id"] != "m1" {
		t.Fatalf("unexpected message: %v", m)
	}
	if _, ok := m["phone"]; ok {
		t.Fatal("empty phone must be omitted")
	}
}

func TestEncodeClearedTextIsPresent(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"message":{"command":"appointment","text":"/appointment"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	msg := env.Message
	msg.Text = ""
	data, err := env.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out struct {
		Message map[string]any `json:"message"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if text, ok := out.Message["text"]; !ok || text != "" {
		t.Fatalf("text = %v (present %v), want empty string", text, ok)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"command":"appointment","html":"<p>x</p>"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	c := m.Clone()
	c.extra["html"] = json.RawMessage(`"changed"`)
	if v, _ := m.Extra("html"); string(v) != `"<p>x</p>"` {
		t.Fatalf("clone mutated original: %s", v)
	}
}

func TestFormDataDropsUnusableValues(t *testing.T) {
	body := `{"form_data":{"phone":false,"zero":0,"empty":"","nested":{"a":1},"list":[1],"skip":null,"action":"reserve","n":-2.5,"on":true}}`
	env, err := DecodeEnvelope([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := FormData{"action": "reserve", "n": "-2.5", "on": "true"}
	if len(env.FormData) != len(want) {
		t.Fatalf("form data = %v, want %v", env.FormData, want)
	}
	for k, v := range want {
		if got := env.FormData.Get(k); got != v {
			t.Fatalf("form_data[%s] = %q, want %q", k, got, v)
		}
	}
}

func TestFormDataNonObjectIsEmpty(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"form_data":"oops"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.FormData == nil || len(env.FormData) != 0 {
		t.Fatalf("form data = %#v, want empty non-nil", env.FormData)
	}
}
