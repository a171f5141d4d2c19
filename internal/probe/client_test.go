package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

func targetPort(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return u.Port()
}

func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	_ = ln.Close()
	return port
}

func TestURLTemplates_UsePortVerbatim(t *testing.T) {
	c := NewClient("localhost", 0)
	cases := []string{"8080", "9090", "", "abc", "80/x", " 1 "}
	for _, p := range cases {
		if got, want := c.AppsURL(p), "http://localhost:"+p+"/apps/"; got != want {
			t.Fatalf("apps url for %q: got %q want %q", p, got, want)
		}
		if got, want := c.MetadataURL(p), "http://localhost:"+p+"/metadata"; got != want {
			t.Fatalf("metadata url for %q: got %q want %q", p, got, want)
		}
	}
}

func TestNewClient_DefaultsHost(t *testing.T) {
	if got := NewClient("  ", 0).Host(); got != "localhost" {
		t.Fatalf("expected localhost, got %q", got)
	}
}

func TestLiveness(t *testing.T) {
	cases := []struct {
		name   string
		status int
		ok     bool
	}{
		{name: "ok", status: http.StatusOK, ok: true},
		{name: "no content", status: http.StatusNoContent, ok: true},
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/apps/" {
					t.Errorf("expected /apps/, got %s", r.URL.Path)
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewClient("127.0.0.1", time.Second)
			err := c.Liveness(context.Background(), targetPort(t, srv))
			if tc.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tc.ok {
				var pe *Error
				if !errors.As(err, &pe) {
					t.Fatalf("expected *Error, got %v", err)
				}
				if pe.StatusCode != tc.status || pe.Op != OpLiveness {
					t.Fatalf("unexpected error fields: %+v", pe)
				}
			}
		})
	}
}

func TestLiveness_Unreachable(t *testing.T) {
	c := NewClient("127.0.0.1", time.Second)
	err := c.Liveness(context.Background(), closedPort(t))
	var pe *Error
	if !errors.As(err, &pe) || pe.Err == nil {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestLiveness_InvalidPortFailsWithoutPanicking(t *testing.T) {
	c := NewClient("127.0.0.1", time.Second)
	if err := c.Liveness(context.Background(), "not a port"); err == nil {
		t.Fatalf("expected error for invalid port")
	}
}

func TestMetadata(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "datasite", body: `{"datasite":"alice@example.org"}`, want: "alice@example.org"},
		{name: "missing", body: `{"email":"bob@example.org"}`, want: ""},
		{name: "null", body: `{"datasite":null}`, want: ""},
		{name: "number", body: `{"datasite":42}`, want: "42"},
		{name: "array body", body: `[1,2]`, want: ""},
		{name: "object datasite", body: `{"datasite":{"name":"alice"}}`, want: ""},
		{name: "array datasite", body: `{"datasite":["alice"]}`, want: ""},
		{name: "true", body: `{"datasite":true}`, want: "true"},
		{name: "false", body: `{"datasite":false}`, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/metadata" {
					t.Errorf("expected /metadata, got %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			md, err := NewClient("127.0.0.1", time.Second).Metadata(context.Background(), targetPort(t, srv))
			if err != nil {
				t.Fatalf("metadata: %v", err)
			}
			if md.Datasite != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, md.Datasite)
			}
		})
	}
}

func TestMetadata_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"datasite":"ignored"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("127.0.0.1", time.Second)
	_, err := c.Metadata(context.Background(), targetPort(t, srv))
	var pe *Error
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status error, got %v", err)
	}

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer garbage.Close()
	if _, err := c.Metadata(context.Background(), targetPort(t, garbage)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestObserveCalledPerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	seen := map[string]int{}
	c := NewClient("127.0.0.1", time.Second)
	c.Observe = func(op string, _ time.Duration, _ error) {
		mu.Lock()
		seen[op]++
		mu.Unlock()
	}
	port := targetPort(t, srv)
	_ = c.Liveness(context.Background(), port)
	_, _ = c.Metadata(context.Background(), port)

	if seen[OpLiveness] != 1 || seen[OpMetadata] != 1 {
		t.Fatalf("unexpected observations: %v", seen)
	}
}

func TestLiveness_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewClient("127.0.0.1", 0).Liveness(ctx, targetPort(t, srv)) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("liveness did not return after cancel")
	}
}
