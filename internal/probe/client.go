package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	OpLiveness = "liveness"
	OpMetadata = "metadata"
)

// Metadata is the subset of the target's /metadata document the panel shows.
type Metadata struct {
	Datasite string `json:"datasite"`
}

// Error is returned when a probe request fails or answers with a non-2xx status.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client probes a SyftBox-style server listening on host:<port>.
type Client struct {
	host string
	http *http.Client

	// Observe, when set, is called once per finished request.
	Observe func(op string, d time.Duration, err error)
}

// NewClient returns a client for host. A zero timeout leaves requests
// unbounded; superseded requests are cancelled through their context instead.
func NewClient(host string, timeout time.Duration) *Client {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "localhost"
	}
	return &Client{
		host: host,
		http: &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(host string, hc *http.Client) *Client {
	c := NewClient(host, 0)
	if hc != nil {
		c.http = hc
	}
	return c
}

func (c *Client) Host() string { return c.host }

// AppsURL is the liveness endpoint for port. The port is used verbatim.
func (c *Client) AppsURL(port string) string {
	return fmt.Sprintf("http://%s:%s/apps/", c.host, port)
}

// MetadataURL is the metadata endpoint for port. The port is used verbatim.
func (c *Client) MetadataURL(port string) string {
	return fmt.Sprintf("http://%s:%s/metadata", c.host, port)
}

// Liveness reports whether GET /apps/ answered with a 2xx status. The body is
// ignored.
func (c *Client) Liveness(ctx context.Context, port string) (err error) {
	url := c.AppsURL(port)
	start := time.Now()
	defer func() { c.observe(OpLiveness, time.Since(start), err) }()

	resp, err := c.get(ctx, url)
	if err != nil {
		return &Error{Op: OpLiveness, URL: url, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if !ok(resp.StatusCode) {
		return &Error{Op: OpLiveness, URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}

// Metadata fetches GET /metadata and extracts the datasite field. A missing or
// empty field yields an empty Datasite, not an error.
func (c *Client) Metadata(ctx context.Context, port string) (md Metadata, err error) {
	url := c.MetadataURL(port)
	start := time.Now()
	defer func() { c.observe(OpMetadata, time.Since(start), err) }()

	resp, err := c.get(ctx, url)
	if err != nil {
		return Metadata{}, &Error{Op: OpMetadata, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return Metadata{}, &Error{Op: OpMetadata, URL: url, StatusCode: resp.StatusCode}
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Metadata{}, &Error{Op: OpMetadata, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return Metadata{Datasite: datasiteFrom(body)}, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) observe(op string, d time.Duration, err error) {
	if c.Observe != nil {
		c.Observe(op, d, err)
	}
}

func ok(code int) bool {
	return code >= 200 && code <= 299
}

// datasiteFrom takes the datasite field of any JSON document. Strings are
// used as is, a non-zero number or true is formatted, and falsy values render
// as "". Objects and arrays also render as "", even when non-empty, instead
// of taking a string coercion of the structure.
func datasiteFrom(body any) string {
	obj, isObj := body.(map[string]any)
	if !isObj {
		return ""
	}
	switch v := obj["datasite"].(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if !v {
			return ""
		}
		return "true"
	default:
		return ""
	}
}
