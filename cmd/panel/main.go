package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fl-status-panel/internal/config"
	httpapi "fl-status-panel/internal/http"
	"fl-status-panel/internal/panel"
	"fl-status-panel/internal/probe"
	"fl-status-panel/internal/settings"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "panel",
		Short:         "Status panel for a local server",
		Long:          "Watches a server on localhost: liveness via /apps/, datasite via /metadata, with a remembered port.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newPortCmd())
	return root
}

func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("version", version).Logger()
}

// openStore opens the configured backend. When it cannot be opened the panel
// still runs, with an in-process store, the way a page keeps working when
// browser storage is blocked.
func openStore(cfg config.Config, log zerolog.Logger) settings.Store {
	store, err := settings.Open(cfg)
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.SettingsBackend).Msg("settings store unavailable; using memory backend")
		return settings.NewMemoryStore()
	}
	return store
}

type app struct {
	cfg    config.Config
	log    zerolog.Logger
	store  settings.Store
	prober *probe.Client
	doc    *panel.Document
	ctrl   *panel.Controller
}

func newApp(cfg config.Config, log zerolog.Logger) *app {
	store := httpapi.InstrumentStore(openStore(cfg, log))

	prober := probe.NewClient(cfg.TargetHost, cfg.ProbeTimeout)
	prober.Observe = httpapi.ObserveProbe

	doc := panel.NewDocument(cfg.DefaultPort)
	ctrl := panel.NewController(panel.Options{
		DefaultPort: cfg.DefaultPort,
		Store:       store,
		Prober:      prober,
		View:        doc,
		Logger:      log,
	})

	return &app{cfg: cfg, log: log, store: store, prober: prober, doc: doc, ctrl: ctrl}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing settings store")
	}
}
