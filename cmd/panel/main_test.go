package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"fl-status-panel/internal/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func useYAMLSettings(t *testing.T) {
	t.Helper()
	t.Setenv("APP_LOG_LEVEL", "error")
	t.Setenv("PANEL_SETTINGS_BACKEND", "yaml")
	t.Setenv("PANEL_SETTINGS_YAML_PATH", filepath.Join(t.TempDir(), "panel.yaml"))
}

func TestPortCommands_SetThenGet(t *testing.T) {
	useYAMLSettings(t)

	out, err := runCLI(t, "port", "get")
	if err != nil {
		t.Fatalf("port get: %v", err)
	}
	if strings.TrimSpace(out) != "8080 (default)" {
		t.Fatalf("expected default port, got %q", out)
	}

	if _, err := runCLI(t, "port", "set", "9090"); err != nil {
		t.Fatalf("port set: %v", err)
	}

	out, err = runCLI(t, "port", "get")
	if err != nil {
		t.Fatalf("port get: %v", err)
	}
	if strings.TrimSpace(out) != "9090" {
		t.Fatalf("expected saved port 9090, got %q", out)
	}
}

func TestPortSet_RequiresValue(t *testing.T) {
	useYAMLSettings(t)

	if _, err := runCLI(t, "port", "set"); err == nil {
		t.Fatalf("expected an argument error")
	}
}

func TestCheckCommand(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apps/":
			w.WriteHeader(http.StatusOK)
		case "/metadata":
			_, _ = io.WriteString(w, `{"datasite":"alice@example.org"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer target.Close()
	u, err := url.Parse(target.URL)
	if err != nil {
		t.Fatalf("parse target url: %v", err)
	}

	useYAMLSettings(t)
	t.Setenv("PANEL_TARGET_HOST", "127.0.0.1")

	out, err := runCLI(t, "check", "--port", u.Port())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{u.Port(), "alice@example.org", "✔️"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	// --port is a one-off; nothing is remembered.
	out, err = runCLI(t, "port", "get")
	if err != nil {
		t.Fatalf("port get: %v", err)
	}
	if !strings.Contains(out, "(default)") {
		t.Fatalf("check must not persist the port, got %q", out)
	}
}

func TestCheckCommand_TargetDown(t *testing.T) {
	target := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(target.URL)
	target.Close()

	useYAMLSettings(t)
	t.Setenv("PANEL_TARGET_HOST", "127.0.0.1")

	out, err := runCLI(t, "check", "--port", u.Port())
	if !errors.Is(err, errTargetDown) {
		t.Fatalf("expected errTargetDown, got %v", err)
	}
	if !strings.Contains(out, "❌") {
		t.Fatalf("expected failure glyph in output:\n%s", out)
	}
}

func TestNewLogger_Level(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range cases {
		log := newLogger(config.Config{LogLevel: in}, io.Discard)
		if got := log.GetLevel(); got != want {
			t.Fatalf("level %q: expected %v, got %v", in, want, got)
		}
	}
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.Config{LogLevel: "info", LogFormat: "console"}, &buf)
	log.Info().Msg("hello")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected message in output, got %q", buf.String())
	}
}
