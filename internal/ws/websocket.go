package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"marketplace-client/internal/models"
)

type websocketTransport struct {
	path         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

func (t *websocketTransport) Name() string { return TransportWebsocket }

func (t *websocketTransport) Dial(ctx context.Context, origin, token string) (Conn, error) {
	target, err := websocketURL(origin, t.path, token)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: t.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &websocketConn{conn: conn, writeTimeout: t.writeTimeout}, nil
}

type websocketConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func (c *websocketConn) ReadFrame() (models.Frame, error) {
	var frame models.Frame
	err := c.conn.ReadJSON(&frame)
	return frame, err
}

func (c *websocketConn) WriteFrame(frame models.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteJSON(frame)
}

func (c *websocketConn) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
