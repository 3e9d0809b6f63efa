package setup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v4"

	"github.com/m3rciful/apptbot/core/commands"
	"github.com/m3rciful/apptbot/core/stream"
)

type fakeStream struct {
	mu          sync.Mutex
	commands    []CommandSpec
	channelCmds []string
	actionURL   string
	calls       []string
}

func (f *fakeStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	if r.URL.Query().Get("api_key") != "key" {
		http.Error(w, `{"message":"api_key missing"}`, http.StatusUnauthorized)
		return
	}
	if r.Header.Get("Stream-Auth-Type") != "jwt" {
		http.Error(w, `{"message":"bad auth type"}`, http.StatusUnauthorized)
		return
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(r.Header.Get("Authorization"), claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	}); err != nil || claims["server"] != true {
		http.Error(w, `{"message":"bad token"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/commands":
		_ = json.NewEncoder(w).Encode(map[string]any{"commands": f.commands})
	case r.Method == http.MethodPost && r.URL.Path == "/commands":
		var c CommandSpec
		_ = json.NewDecoder(r.Body).Decode(&c)
		f.commands = append(f.commands, c)
		_ = json.NewEncoder(w).Encode(map[string]any{"command": c})
	case r.Method == http.MethodGet && r.URL.Path == "/channeltypes/messaging":
		cmds := make([]CommandSpec, 0, len(f.channelCmds))
		for _, n := range f.channelCmds {
			cmds = append(cmds, CommandSpec{Name: n})
		}
		_ = json.NewEncoder(w).Encode(ChannelType{Name: "messaging", Commands: cmds})
	case r.Method == http.MethodPut && r.URL.Path == "/channeltypes/messaging":
		var body struct {
			Commands []string `json:"commands"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.channelCmds = body.Commands
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPatch && r.URL.Path == "/app":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.actionURL = body["custom_action_handler_url"]
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}
}

func appointmentCommand() commands.Command {
	return commands.Command{
		Name:        "appointment",
		Description: "Create an appointment",
		Args:        "[description]",
		Handler:     commands.HandlerFunc(func(context.Context, *stream.Invocation) error { return nil }),
	}
}

func newTestClient(t *testing.T, fs *fakeStream) *Client {
	t.Helper()
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "key", "secret", srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestRunRegistersOnce(t *testing.T) {
	fs := &fakeStream{channelCmds: []string{"giphy", "mute"}}
	client := newTestClient(t, fs)
	opts := Options{
		Commands:    []commands.Command{appointmentCommand()},
		DefaultSet:  "mml_commands_set",
		ChannelType: "messaging",
		ActionURL:   "https://hooks.example.com/",
	}

	rep, err := Run(context.Background(), client, opts)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rep.Created) != 1 || len(rep.Enabled) != 1 || !rep.ActionURLUpdate {
		t.Fatalf("report = %+v", rep)
	}
	if fs.commands[0].Set != "mml_commands_set" || fs.commands[0].Args != "[description]" {
		t.Fatalf("created = %+v", fs.commands[0])
	}
	if strings.Join(fs.channelCmds, ",") != "giphy,mute,appointment" {
		t.Fatalf("channel commands = %v", fs.channelCmds)
	}
	if fs.actionURL != "https://hooks.example.com/" {
		t.Fatalf("action url = %q", fs.actionURL)
	}

	rep, err = Run(context.Background(), client, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(rep.Created) != 0 || len(rep.Enabled) != 0 {
		t.Fatalf("second run should not change registrations: %+v", rep)
	}
	if len(fs.commands) != 1 {
		t.Fatalf("commands = %d", len(fs.commands))
	}
}

func TestRunEmptyChannelTypeEnablesAll(t *testing.T) {
	fs := &fakeStream{}
	client := newTestClient(t, fs)
	_, err := Run(context.Background(), client, Options{
		Commands:    []commands.Command{appointmentCommand()},
		DefaultSet:  "mml_commands_set",
		ChannelType: "messaging",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(fs.channelCmds, ",") != "all,appointment" {
		t.Fatalf("channel commands = %v", fs.channelCmds)
	}
	for _, call := range fs.calls {
		if strings.HasPrefix(call, "PATCH") {
			t.Fatal("app settings must not be touched without an action url")
		}
	}
}

func TestClientAPIError(t *testing.T) {
	fs := &fakeStream{}
	client := newTestClient(t, fs)
	_, err := client.GetChannelType(context.Background(), "livestream")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("not a url", "key", "secret", nil); err == nil {
		t.Fatal("expected base url error")
	}
	if _, err := NewClient("https://chat.stream-io-api.com", "key", "", nil); err == nil {
		t.Fatal("expected secret error")
	}
}
