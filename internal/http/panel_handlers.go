package http

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"

	"fl-status-panel/internal/panel"
)

type portRequest struct {
	Port *string `json:"port"`
}

func panelPayload(c *panel.Controller, doc *panel.Document, result *panel.Result) map[string]any {
	payload := map[string]any{
		"state":    c.State().Snapshot(),
		"elements": doc.Snapshot(),
	}
	if result != nil {
		payload["result"] = result
	}
	return payload
}

func panelSnapshotHandler(c *panel.Controller, doc *panel.Document) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, panelPayload(c, doc, nil))
	}
}

func panelInitHandler(c *panel.Controller, doc *panel.Document) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		res := c.Init(r.Context())
		writeJSON(w, nethttp.StatusOK, panelPayload(c, doc, &res))
	}
}

func savePortHandler(c *panel.Controller, doc *panel.Document) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		port, err := decodePort(r)
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		res := c.SavePort(r.Context(), port)
		writeJSON(w, nethttp.StatusOK, panelPayload(c, doc, &res))
	}
}

func portInputHandler(c *panel.Controller, doc *panel.Document) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		port, err := decodePort(r)
		if err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		res := c.InputChanged(r.Context(), port)
		writeJSON(w, nethttp.StatusOK, panelPayload(c, doc, &res))
	}
}

func panelRefreshHandler(c *panel.Controller, doc *panel.Document) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		res := c.Refresh(r.Context())
		writeJSON(w, nethttp.StatusOK, panelPayload(c, doc, &res))
	}
}

// decodePort reads {"port": "..."}. The value itself is not validated; an
// empty string is a legitimate edit.
func decodePort(r *nethttp.Request) (string, error) {
	var req portRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		return "", errors.New("invalid request body")
	}
	if req.Port == nil {
		return "", errors.New("port is required")
	}
	return *req.Port, nil
}
