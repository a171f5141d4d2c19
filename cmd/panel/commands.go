package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fl-status-panel/internal/config"
	httpapi "fl-status-panel/internal/http"
	"fl-status-panel/internal/panel"
	"fl-status-panel/internal/settings"
)

// errTargetDown is what `check` returns when the status ends up in error.
var errTargetDown = errors.New("target server is not responding")

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			log := newLogger(cfg, os.Stderr)
			a := newApp(cfg, log)
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := a.ctrl.Init(ctx)
			log.Info().
				Str("port", a.ctrl.State().Port()).
				Str("status", string(res.Status)).
				Str("backend", a.store.Backend()).
				Msg("panel initialised")

			srv, err := httpapi.NewServer(cfg, httpapi.Deps{
				Controller: a.ctrl,
				Document:   a.doc,
				Store:      a.store,
				Prober:     a.prober,
				Logger:     log,
			})
			if err != nil {
				return fmt.Errorf("initialize server: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the target once and print the panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			log := newLogger(cfg, cmd.ErrOrStderr())
			a := newApp(cfg, log)
			defer a.Close()

			var res panel.Result
			if cmd.Flags().Changed("port") {
				res = a.ctrl.InputChanged(cmd.Context(), port)
			} else {
				res = a.ctrl.Init(cmd.Context())
			}

			printPanel(cmd.OutOrStdout(), a.doc, a.prober.AppsURL(a.ctrl.State().Port()))
			if res.Status != panel.StatusSuccess {
				return errTargetDown
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "probe this port instead of the saved one (not persisted)")
	return cmd
}

func printPanel(w io.Writer, doc *panel.Document, appsURL string) {
	status := doc.Element(panel.ElementServerStatus)
	glyph := status.Text
	switch {
	case status.HasClass(panel.ClassSuccess):
		glyph = color.GreenString(glyph)
	case status.HasClass(panel.ClassError):
		glyph = color.RedString(glyph)
	}

	fmt.Fprintf(w, "%-9s %s\n", "port", doc.Element(panel.ElementServerPort).Value)
	fmt.Fprintf(w, "%-9s %s\n", "datasite", doc.Element(panel.ElementDatasite).Text)
	fmt.Fprintf(w, "%-9s %s  %s\n", "status", glyph, color.New(color.Faint).Sprint(appsURL))
}

func newPortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "port",
		Short: "Read or write the remembered server port",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the remembered port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			store, err := settings.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			v, ok, err := store.Get(cmd.Context(), settings.ServerPortKey)
			if err != nil {
				return err
			}
			if !ok || v == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", cfg.DefaultPort)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <value>",
		Short: "Remember a port for the next start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			store, err := settings.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Set(cmd.Context(), settings.ServerPortKey, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s saved to %s\n", args[0], store.Backend())
			return nil
		},
	})

	return cmd
}
