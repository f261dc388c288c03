// ABOUTME: HTTP client that mirrors local content writes to the remote
// ABOUTME: content service; callers treat every push as best effort

package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/g333vn/Glingo-sub002/internal/store"
)

// Client pushes store writes to the remote content service over HTTP.
// Records are addressed as /v1/stores/{store}/records/{key}; upserts PUT
// the JSON payload, deletes DELETE the resource. The caller's identity
// token travels as a Bearer credential.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a mirror client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  slog.Default().With("component", "remote"),
	}
}

// Push mirrors one write. The remote service owns conflict resolution;
// this client only reports transport and HTTP-level failures.
func (c *Client) Push(ctx context.Context, w store.MirrorWrite) error {
	endpoint := fmt.Sprintf("%s/v1/stores/%s/records/%s",
		c.baseURL, url.PathEscape(w.Store), url.PathEscape(w.Key))

	method := http.MethodPut
	var body io.Reader
	if w.Delete {
		method = http.MethodDelete
	} else {
		body = bytes.NewReader(w.Data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building mirror request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.Token)
	if w.UserID != "" {
		req.Header.Set("X-Glingo-User", w.UserID)
	}
	if !w.Delete {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("pushing to content service: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("content service returned %s for %s %s", resp.Status, method, endpoint)
	}
	c.logger.Debug("mirrored write", "store", w.Store, "key", w.Key, "delete", w.Delete)
	return nil
}

var _ store.Mirror = (*Client)(nil)
