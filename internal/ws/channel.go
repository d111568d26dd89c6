// Package ws is the realtime channel: one authenticated connection to the
// marketplace server that fans inbound events out to listeners and carries
// room membership and chat sends.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"marketplace-client/internal/logging"
	"marketplace-client/internal/models"
	"marketplace-client/internal/observability"
	"marketplace-client/internal/session"
)

const eventsRoutingKey = "ws_events.client"

var (
	ErrNotConnected = errors.New("realtime channel not connected")
	ErrClosed       = errors.New("realtime channel closed")
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	GaveUp
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case GaveUp:
		return "gave_up"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CredentialSource yields the bearer credential at connect and send time.
type CredentialSource interface {
	Token() string
}

type ReconnectPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
	// MaxAttempts of zero means no attempt cap; MaxElapsed still applies.
	MaxAttempts  int
	MaxElapsed   time.Duration
}

type Options struct {
	Origin       string
	Path         string
	PollPath     string
	Transports   []string
	Reconnect    ReconnectPolicy
	AckTimeout   time.Duration
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       logging.Logger
}

func (o *Options) setDefaults() {
	if o.Path == "" {
		o.Path = "/ws"
	}
	if o.PollPath == "" {
		o.PollPath = "/realtime/poll"
	}
	if len(o.Transports) == 0 {
		o.Transports = []string{TransportWebsocket, TransportPolling}
	}
	if o.Reconnect.InitialDelay <= 0 {
		o.Reconnect.InitialDelay = 5 * time.Second
	}
	if o.Reconnect.MaxDelay <= 0 {
		o.Reconnect.MaxDelay = time.Minute
	}
	if o.Reconnect.Multiplier < 1 {
		o.Reconnect.Multiplier = 2
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = 10 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
}

// Channel is the realtime client. It is safe for concurrent use.
type Channel struct {
	creds      CredentialSource
	opts       Options
	transports []Transport
	log        logging.Logger

	messages      *listeners[models.ChatMessage]
	notifications *listeners[models.Notification]
	deliveries    *listeners[models.OutgoingMessage]
	states        *listeners[State]
	outbox        *outbox

	mu       sync.Mutex
	state    State
	conn     Conn
	info     ConnInfo
	room     string
	token    string
	loopCtx  context.Context
	loopStop context.CancelFunc
	closed   bool
}

func New(creds CredentialSource, opts Options) (*Channel, error) {
	opts.setDefaults()
	transports, err := buildTransports(opts)
	if err != nil {
		return nil, err
	}
	log := opts.Logger.With("component", "realtime")
	c := &Channel{
		creds:         creds,
		opts:          opts,
		transports:    transports,
		log:           log,
		messages:      newListeners[models.ChatMessage]("message", log),
		notifications: newListeners[models.Notification]("notification", log),
		deliveries:    newListeners[models.OutgoingMessage]("delivery", log),
		states:        newListeners[State]("state", log),
	}
	c.outbox = newOutbox(opts.AckTimeout, c.deliveries.emit)
	return c, nil
}

// OnMessage subscribes to inbound chat messages.
func (c *Channel) OnMessage(fn func(models.ChatMessage)) func() {
	return c.messages.add(fn)
}

// OnNotification subscribes to listing and purchase notifications.
func (c *Channel) OnNotification(fn func(models.Notification)) func() {
	return c.notifications.add(fn)
}

// OnDelivery subscribes to status changes of outgoing messages.
func (c *Channel) OnDelivery(fn func(models.OutgoingMessage)) func() {
	return c.deliveries.add(fn)
}

// OnStateChange subscribes to connection state transitions.
func (c *Channel) OnStateChange(fn func(State)) func() {
	return c.states.add(fn)
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) CurrentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Transport names the transport of the live connection, or "" when there
// is none.
func (c *Channel) Transport() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.info.Transport
}

// PendingMessages counts sends still waiting for an acknowledgement.
func (c *Channel) PendingMessages() int {
	return c.outbox.len()
}

// Connect opens the channel. Without a credential it fails fast and never
// touches the network. A failed dial is returned and handed to the
// reconnect loop. A live channel opened with another credential is closed
// and redialed.
func (c *Channel) Connect(ctx context.Context) error {
	token := c.creds.Token()
	if token == "" {
		c.log.Warn(ctx, "realtime connect skipped", "error", session.ErrNoCredential)
		return session.ErrNoCredential
	}

	c.mu.Lock()
	switch c.state {
	case Connected, Connecting, Reconnecting:
		if c.token == token {
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		c.log.Info(ctx, "credential changed, redialing")
		_ = c.Close()
		c.mu.Lock()
	}
	c.closed = false
	c.token = token
	if c.loopStop != nil {
		c.loopStop()
	}
	c.loopCtx, c.loopStop = context.WithCancel(context.WithoutCancel(ctx))
	loopCtx := c.loopCtx
	c.mu.Unlock()
	c.setState(Connecting)

	conn, info, err := c.dial(ctx, token, 0)
	if err != nil {
		c.log.Error(ctx, "realtime connect failed", "error", err)
		c.publish(ctx, "ws_error", info, err.Error())
		c.scheduleReconnect(loopCtx)
		return err
	}
	return c.attach(ctx, conn, info)
}

// Close disconnects on purpose: reconnecting stops, pending messages fail
// and the channel ends up Disconnected.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.loopStop != nil {
		c.loopStop()
	}
	c.closed = true
	conn := c.conn
	info := c.info
	c.conn = nil
	c.room = ""
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
		c.publish(context.Background(), "ws_disconnect", info, "closed")
	}
	observability.SetWSConnected(false)
	c.outbox.failAll("connection closed")
	c.setState(Disconnected)
	return err
}

// dial tries each transport in preference order and returns the first
// connection that opens.
func (c *Channel) dial(ctx context.Context, token string, attempt int) (Conn, ConnInfo, error) {
	ctx, span := otel.Tracer("marketplace-client/ws").Start(ctx, "ws.dial")
	defer span.End()
	span.SetAttributes(attribute.Int("ws.attempt", attempt))

	info := ConnInfo{
		ConnID:  newConnID(),
		Origin:  c.opts.Origin,
		Attempt: attempt,
		TraceID: span.SpanContext().TraceID().String(),
	}

	var errs []error
	for _, t := range c.transports {
		conn, err := t.Dial(ctx, c.opts.Origin, token)
		if err == nil {
			info.Transport = t.Name()
			info.ConnectedAt = time.Now()
			span.SetAttributes(attribute.String("ws.transport", t.Name()))
			return conn, info, nil
		}
		c.log.Warn(ctx, "realtime transport failed", "transport", t.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	err := errors.Join(errs...)
	span.RecordError(err)
	span.SetStatus(codes.Error, "dial failed")
	return nil, info, err
}

// attach installs a fresh connection and starts its reader.
func (c *Channel) attach(ctx context.Context, conn Conn, info ConnInfo) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.info = info
	room := c.room
	c.mu.Unlock()

	observability.SetWSConnected(true)
	c.setState(Connected)
	c.log.Info(ctx, "realtime connected", "transport", info.Transport, "conn_id", info.ConnID)
	c.publish(ctx, "ws_connect", info, "")

	if room != "" {
		if err := c.write(models.EventJoinRoom, room, ""); err != nil {
			c.log.Warn(ctx, "rejoin room failed", "room", room, "error", err)
		}
	}

	go c.readLoop(conn)
	return nil
}

func (c *Channel) readLoop(conn Conn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			c.lost(conn, err)
			return
		}
		c.dispatch(frame)
	}
}

// lost handles an involuntary disconnect of conn. It is a no-op when conn
// was already replaced or closed.
func (c *Channel) lost(conn Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn || c.closed {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	info := c.info
	loopCtx := c.loopCtx
	c.mu.Unlock()

	_ = conn.Close()
	observability.SetWSConnected(false)
	ctx := context.Background()
	c.log.Warn(ctx, "realtime disconnected", "conn_id", info.ConnID, "error", cause)
	c.publish(ctx, "ws_disconnect", info, cause.Error())
	c.scheduleReconnect(loopCtx)
}

// setState records a transition and notifies listeners. Once closed only
// Disconnected is accepted, so a late dial result cannot resurrect the
// channel.
func (c *Channel) setState(s State) {
	c.mu.Lock()
	if c.state == s || (c.closed && s != Disconnected) {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	c.states.emit(s)
}

func (c *Channel) publish(ctx context.Context, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(event)
	env := observability.NewEnvelope(ctx, "ws_events", event, info.payload(event, reason))
	if err := observability.PublishEvent(ctx, eventsRoutingKey, env); err != nil {
		c.log.Debug(ctx, "lifecycle event not published", "event", event, "error", err)
	}
}
