package http

import (
	"context"
	nethttp "net/http"
	"time"

	"fl-status-panel/internal/panel"
	"fl-status-panel/internal/probe"
	"fl-status-panel/internal/settings"
)

func servicesStatusHandler(store settings.Store, prober *probe.Client, state *panel.State) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		payload := map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     map[string]any{},
		}
		services := payload["services"].(map[string]any)

		services["settings"] = settingsStatus(ctx, store)
		services["target"] = targetStatus(ctx, prober, state.Port())

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func settingsStatus(ctx context.Context, store settings.Store) map[string]any {
	if store == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "settings store not configured"}
	}

	start := time.Now()
	saved, found, err := store.Get(ctx, settings.ServerPortKey)
	pingMS := time.Since(start).Milliseconds()
	if err != nil {
		return map[string]any{"enabled": true, "ok": false, "backend": store.Backend(), "error": err.Error()}
	}

	out := map[string]any{"enabled": true, "ok": true, "backend": store.Backend(), "ping_ms": pingMS}
	if found {
		out["saved_port"] = saved
	}
	return out
}

// targetStatus probes the target directly; it does not touch the panel view.
func targetStatus(ctx context.Context, prober *probe.Client, port string) map[string]any {
	if prober == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "target probe not configured"}
	}

	out := map[string]any{
		"enabled":      true,
		"port":         port,
		"apps_url":     prober.AppsURL(port),
		"metadata_url": prober.MetadataURL(port),
	}

	start := time.Now()
	if err := prober.Liveness(ctx, port); err != nil {
		out["ok"] = false
		out["error"] = err.Error()
		return out
	}
	out["ok"] = true
	out["ping_ms"] = time.Since(start).Milliseconds()

	md, err := prober.Metadata(ctx, port)
	if err != nil {
		out["metadata_error"] = err.Error()
		return out
	}
	out["datasite"] = md.Datasite
	return out
}
