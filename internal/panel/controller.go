// Package panel implements the status panel controller: it owns the target
// port, persists it, probes the target and reflects the outcome into a View.
package panel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"fl-status-panel/internal/probe"
	"fl-status-panel/internal/settings"
)

// Status is the terminal state of one liveness check.
type Status string

const (
	StatusUnknown Status = ""
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Prober issues the two probe requests against the target.
type Prober interface {
	Liveness(ctx context.Context, port string) error
	Metadata(ctx context.Context, port string) (probe.Metadata, error)
}

// Options configures a Controller. Store and Prober are required.
type Options struct {
	DefaultPort string
	Store       settings.Store
	Prober      Prober
	View        View
	Logger      zerolog.Logger
}

// Result is what a Refresh left on screen. Fields are zero when the
// corresponding probe was superseded or cancelled.
type Result struct {
	Status   Status `json:"status"`
	Datasite string `json:"datasite"`
	Applied  bool   `json:"applied"`
}

// Controller drives the panel. Probe and storage failures are logged and
// reflected on the view, never returned.
type Controller struct {
	defaultPort string

	state  *State
	store  settings.Store
	prober Prober
	view   View
	log    zerolog.Logger

	liveness requestTracker
	metadata requestTracker
}

func NewController(opts Options) *Controller {
	if opts.DefaultPort == "" {
		opts.DefaultPort = "8080"
	}
	if opts.View == nil {
		opts.View = NewDocument(opts.DefaultPort)
	}
	return &Controller{
		defaultPort: opts.DefaultPort,

		state:  NewState(opts.DefaultPort),
		store:  opts.Store,
		prober: opts.Prober,
		view:   opts.View,
		log:    opts.Logger.With().Str("component", "panel").Logger(),
	}
}

func (c *Controller) State() *State { return c.state }

// Init starts a page load: the port becomes the saved one, or the default when
// nothing usable is saved, so unsaved edits do not survive. Both probes run.
func (c *Controller) Init(ctx context.Context) Result {
	port := c.defaultPort
	saved, ok, err := c.store.Get(ctx, settings.ServerPortKey)
	switch {
	case err != nil:
		c.log.Error().Err(err).Str("backend", c.store.Backend()).Msg("error accessing settings store")
	case ok && saved != "":
		port = saved
		c.log.Info().Str("port", saved).Msg("restored saved port")
	}
	c.state.SetPort(port)
	c.view.SetInputValue(ElementServerPort, port)
	return c.Refresh(ctx)
}

// SavePort persists value as the target port, applies it and runs both probes.
// A failed write leaves the port applied in memory only.
func (c *Controller) SavePort(ctx context.Context, value string) Result {
	c.state.SetPort(value)
	c.view.SetInputValue(ElementServerPort, value)
	if err := c.store.Set(ctx, settings.ServerPortKey, value); err != nil {
		c.log.Error().Err(err).Str("backend", c.store.Backend()).Str("port", value).Msg("error accessing settings store")
	}
	return c.Refresh(ctx)
}

// InputChanged applies a live edit of the port field without persisting it.
func (c *Controller) InputChanged(ctx context.Context, value string) Result {
	c.state.SetPort(value)
	c.view.SetInputValue(ElementServerPort, value)
	return c.Refresh(ctx)
}

// Refresh runs the liveness check and the metadata fetch concurrently and
// waits for both.
func (c *Controller) Refresh(ctx context.Context) Result {
	var (
		g          errgroup.Group
		status     Status
		datasite   string
		statusOK   bool
		metadataOK bool
	)
	g.Go(func() error {
		var err error
		status, statusOK, err = c.checkServerStatus(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		datasite, metadataOK, err = c.fetchMetadata(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.log.Debug().Err(err).Msg("refresh finished with probe failures")
	}
	return Result{Status: status, Datasite: datasite, Applied: statusOK && metadataOK}
}

// CheckServerStatus probes GET /apps/ and sets the status element to the
// success or failure glyph and class.
func (c *Controller) CheckServerStatus(ctx context.Context) Status {
	status, _, _ := c.checkServerStatus(ctx)
	return status
}

// FetchMetadata probes GET /metadata and shows the datasite, or "" on failure.
func (c *Controller) FetchMetadata(ctx context.Context) string {
	datasite, _, _ := c.fetchMetadata(ctx)
	return datasite
}

// Run refreshes every interval until ctx is done. A non-positive interval
// returns immediately.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

func (c *Controller) checkServerStatus(ctx context.Context) (Status, bool, error) {
	pctx, token, port, release := c.liveness.begin(ctx, c.state.Port)
	defer release()

	err := c.prober.Liveness(pctx, port)
	if pctx.Err() != nil {
		c.log.Debug().Uint64("token", token).Str("port", port).Msg("liveness check superseded")
		return StatusUnknown, false, err
	}

	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	applied := c.liveness.commit(token, func() {
		if status == StatusSuccess {
			c.view.SetText(ElementServerStatus, GlyphSuccess)
			c.view.RemoveClass(ElementServerStatus, ClassError)
			c.view.AddClass(ElementServerStatus, ClassSuccess)
			return
		}
		c.view.SetText(ElementServerStatus, GlyphFailure)
		c.view.RemoveClass(ElementServerStatus, ClassSuccess)
		c.view.AddClass(ElementServerStatus, ClassError)
	})
	if !applied {
		c.log.Debug().Uint64("token", token).Str("port", port).Msg("dropping stale liveness result")
		return StatusUnknown, false, err
	}
	if err != nil {
		c.log.Warn().Err(err).Str("port", port).Msg("server status check failed")
	}
	return status, true, err
}

func (c *Controller) fetchMetadata(ctx context.Context) (string, bool, error) {
	pctx, token, port, release := c.metadata.begin(ctx, c.state.Port)
	defer release()

	md, err := c.prober.Metadata(pctx, port)
	if pctx.Err() != nil {
		c.log.Debug().Uint64("token", token).Str("port", port).Msg("metadata fetch superseded")
		return "", false, err
	}
	if err != nil {
		md = probe.Metadata{}
	}

	applied := c.metadata.commit(token, func() {
		c.state.SetDatasite(md.Datasite)
		c.view.SetText(ElementDatasite, md.Datasite)
	})
	if !applied {
		c.log.Debug().Uint64("token", token).Str("port", port).Msg("dropping stale metadata result")
		return "", false, err
	}
	if err != nil {
		var pe *probe.Error
		if errors.As(err, &pe) {
			c.log.Error().Err(err).Str("url", pe.URL).Int("status", pe.StatusCode).Msg("error fetching metadata")
		} else {
			c.log.Error().Err(err).Str("port", port).Msg("error fetching metadata")
		}
		return "", true, err
	}
	c.log.Debug().Str("datasite", md.Datasite).Msg("metadata datasite")
	return md.Datasite, true, nil
}

// requestTracker hands out monotonic tokens for one probe kind. Starting a new
// request cancels the one in flight, and only the latest token may commit. The
// port is read under the same lock as the token, so the latest token always
// probes the port that was current when it was issued.
type requestTracker struct {
	mu     sync.Mutex
	token  uint64
	cancel context.CancelFunc
}

func (t *requestTracker) begin(parent context.Context, currentPort func() string) (context.Context, uint64, string, func()) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.token++
	token := t.token
	port := currentPort()
	t.cancel = cancel
	t.mu.Unlock()

	return ctx, token, port, func() {
		t.mu.Lock()
		if t.token == token {
			t.cancel = nil
		}
		t.mu.Unlock()
		cancel()
	}
}

// commit runs apply under the tracker lock if token is still the latest.
func (t *requestTracker) commit(token uint64, apply func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if token != t.token {
		return false
	}
	apply()
	return true
}
