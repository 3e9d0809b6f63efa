package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
		{"timeout", timeoutErr{}, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"read", &net.OpError{Op: "read", Err: errors.New("reset")}, false},
		{"wrapped dial", &url.Error{Op: "Post", URL: "https://x", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.err); got != tc.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(&net.DNSError{Err: "no such host", Name: "x"}); got != "dns" {
		t.Fatalf("dns = %q", got)
	}
	if got := Classify(context.DeadlineExceeded); got != "timeout" {
		t.Fatalf("deadline = %q", got)
	}
	if got := Classify(&net.OpError{Op: "dial", Err: errors.New("refused")}); got != "dial" {
		t.Fatalf("dial = %q", got)
	}
	if got := Classify(errors.New("x")); got != "unknown" {
		t.Fatalf("plain = %q", got)
	}
}

type flakyTransport struct {
	failures int
	calls    int
	bodies   []string
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		var sb strings.Builder
		buf := make([]byte, 64)
		for {
			n, err := req.Body.Read(buf)
			sb.Write(buf[:n])
			if err != nil {
				break
			}
		}
		f.bodies = append(f.bodies, sb.String())
	}
	if f.calls <= f.failures {
		return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestRetryTransportResendsBody(t *testing.T) {
	base := &flakyTransport{failures: 2}
	rt := NewRetryTransport(base, 3, 0)
	req, err := http.NewRequest(http.MethodPost, "http://example.invalid/commands", strings.NewReader(`{"name":"appointment"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	defer resp.Body.Close()
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
	for i, b := range base.bodies {
		if b != `{"name":"appointment"}` {
			t.Fatalf("attempt %d body = %q", i+1, b)
		}
	}
}

func TestRetryTransportGivesUp(t *testing.T) {
	base := &flakyTransport{failures: 10}
	rt := NewRetryTransport(base, 1, 0)
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/app", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if base.calls != 2 {
		t.Fatalf("calls = %d, want 2", base.calls)
	}
}
