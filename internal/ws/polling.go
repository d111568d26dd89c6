package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"marketplace-client/internal/models"
)

var errPollClosed = errors.New("polling connection closed")

// pollingTransport is the fallback for intermediaries that refuse the
// websocket upgrade: one request opens a session, then frames are pulled
// with repeated GETs and pushed with one POST each.
type pollingTransport struct {
	client   *http.Client
	path     string
	interval time.Duration
}

func (t *pollingTransport) Name() string { return TransportPolling }

type pollOpenResponse struct {
	SID string `json:"sid"`
}

func (t *pollingTransport) Dial(ctx context.Context, origin, token string) (Conn, error) {
	openURL, err := endpoint(origin, t.path+"/open", token, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("poll open: status %d", resp.StatusCode)
	}
	var open pollOpenResponse
	if err := json.NewDecoder(resp.Body).Decode(&open); err != nil {
		return nil, fmt.Errorf("poll open: %w", err)
	}
	if open.SID == "" {
		return nil, errors.New("poll open: empty session id")
	}

	pollURL, err := endpoint(origin, t.path, token, url.Values{"sid": {open.SID}})
	if err != nil {
		return nil, err
	}
	connCtx, cancel := context.WithCancel(context.Background())
	return &pollingConn{
		client:   t.client,
		url:      pollURL,
		interval: t.interval,
		ctx:      connCtx,
		cancel:   cancel,
	}, nil
}

type pollingConn struct {
	client   *http.Client
	url      string
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending []models.Frame
}

func (c *pollingConn) ReadFrame() (models.Frame, error) {
	for {
		c.mu.Lock()
		if len(c.pending) > 0 {
			frame := c.pending[0]
			c.pending = c.pending[1:]
			c.mu.Unlock()
			return frame, nil
		}
		c.mu.Unlock()

		frames, err := c.poll()
		if err != nil {
			return models.Frame{}, err
		}
		if len(frames) == 0 {
			select {
			case <-c.ctx.Done():
				return models.Frame{}, errPollClosed
			case <-time.After(c.interval):
			}
			continue
		}
		c.mu.Lock()
		c.pending = append(c.pending, frames...)
		c.mu.Unlock()
	}
}

func (c *pollingConn) poll() ([]models.Frame, error) {
	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if c.ctx.Err() != nil {
			return nil, errPollClosed
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("poll: status %d", resp.StatusCode)
	}
	var frames []models.Frame
	if err := json.NewDecoder(resp.Body).Decode(&frames); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("poll: %w", err)
	}
	return frames, nil
}

func (c *pollingConn) WriteFrame(frame models.Frame) error {
	if c.ctx.Err() != nil {
		return errPollClosed
	}
	body, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("poll send: status %d", resp.StatusCode)
	}
	return nil
}

func (c *pollingConn) Close() error {
	c.cancel()
	return nil
}
