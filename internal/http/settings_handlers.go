package http

import (
	nethttp "net/http"

	"fl-status-panel/internal/config"
)

// panelConfigHandler reports the effective, non-secret panel configuration.
func panelConfigHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": map[string]any{
				"target_host":          cfg.TargetHost,
				"default_port":         cfg.DefaultPort,
				"probe_timeout_sec":    int(cfg.ProbeTimeout.Seconds()),
				"refresh_interval_sec": int(cfg.RefreshInterval.Seconds()),
				"settings_backend":     cfg.SettingsBackend,
			},
		})
	}
}
