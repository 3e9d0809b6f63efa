package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/apptbot/core/config"
	"github.com/m3rciful/apptbot/core/setup"
	"github.com/m3rciful/apptbot/core/webhook"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, what.(string))
	return &tele.Message{}, nil
}

type fakeSetupAPI struct {
	created []setup.CommandSpec
	enabled []string
	url     string
}

func (f *fakeSetupAPI) ListCommands(context.Context) ([]setup.CommandSpec, error) { return nil, nil }
func (f *fakeSetupAPI) CreateCommand(_ context.Context, c setup.CommandSpec) error {
	f.created = append(f.created, c)
	return nil
}
func (f *fakeSetupAPI) GetChannelType(context.Context, string) (setup.ChannelType, error) {
	return setup.ChannelType{Name: "messaging"}, nil
}
func (f *fakeSetupAPI) UpdateChannelTypeCommands(_ context.Context, _ string, cmds []string) error {
	f.enabled = cmds
	return nil
}
func (f *fakeSetupAPI) SetCustomActionHandlerURL(_ context.Context, u string) error {
	f.url = u
	return nil
}

func testConfig(t *testing.T) *coreconfig.Config {
	t.Helper()
	cfg := &coreconfig.Config{Stream: coreconfig.StreamConfig{APIKey: "key", APISecret: "secret", ActionURL: "https://hooks.example.com"}}
	if err := coreconfig.Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return cfg
}

func TestReserveNotifiesAdmin(t *testing.T) {
	fs := &fakeSender{}
	a, err := New(Options{Config: testConfig(t), TelegramSender: fs})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	body := `{"user":{"id":"jim"},"message":{"command":"appointment","phone":"555-1234"},"form_data":{"action":"reserve","appointment":"2021-03-15T10:30:00.000Z"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("x-api-key", "key")
	req.Header.Set("x-signature", webhook.Sign("secret", []byte(body)))
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Message map[string]any `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Message["type"] != "regular" {
		t.Fatalf("message = %v", out.Message)
	}

	a.Close()
	if len(fs.sent) != 1 || !strings.Contains(fs.sent[0], `555\-1234`) {
		t.Fatalf("notifications = %v", fs.sent)
	}
}

func TestSetupUsesRegistry(t *testing.T) {
	api := &fakeSetupAPI{}
	a, err := New(Options{Config: testConfig(t), SetupAPI: api})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	rep, err := a.Setup(context.Background())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if len(rep.Created) != 1 || api.created[0].Name != "appointment" || api.created[0].Set != "mml_commands_set" {
		t.Fatalf("created = %+v", api.created)
	}
	if strings.Join(api.enabled, ",") != "all,appointment" {
		t.Fatalf("enabled = %v", api.enabled)
	}
	if api.url != "https://hooks.example.com" {
		t.Fatalf("url = %q", api.url)
	}
}
