package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"marketplace-client/internal/models"
)

const (
	TransportWebsocket = "websocket"
	TransportPolling   = "polling"
)

var errUnknownTransport = errors.New("unknown transport")

// Transport opens connections of one kind.
type Transport interface {
	Name() string
	Dial(ctx context.Context, origin, token string) (Conn, error)
}

// Conn is an open realtime connection. ReadFrame is called from a single
// goroutine; WriteFrame may be called concurrently.
type Conn interface {
	ReadFrame() (models.Frame, error)
	WriteFrame(frame models.Frame) error
	Close() error
}

func buildTransports(opts Options) ([]Transport, error) {
	out := make([]Transport, 0, len(opts.Transports))
	for _, name := range opts.Transports {
		switch name {
		case TransportWebsocket:
			out = append(out, &websocketTransport{
				path:         opts.Path,
				dialTimeout:  opts.DialTimeout,
				writeTimeout: opts.WriteTimeout,
			})
		case TransportPolling:
			hc := opts.HTTPClient
			if hc == nil {
				hc = &http.Client{Timeout: 30 * time.Second}
			}
			out = append(out, &pollingTransport{
				client:   hc,
				path:     opts.PollPath,
				interval: opts.PollInterval,
			})
		default:
			return nil, fmt.Errorf("%w %q", errUnknownTransport, name)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no transports configured")
	}
	return out, nil
}
