package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-client/internal/models"
	"marketplace-client/internal/session"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// wsServer is a minimal realtime server speaking the frame protocol.
type wsServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   []*websocket.Conn
	tokens  []string
	dials   int
	refuse  bool
	onFrame func(s *wsServer, f models.Frame)

	frames chan models.Frame
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{frames: make(chan models.Frame, 64)}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handle)
	s.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		s.dropAll()
		s.srv.Close()
	})
	return s
}

func (s *wsServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.dials++
	s.tokens = append(s.tokens, r.URL.Query().Get("token"))
	refuse := s.refuse
	s.mu.Unlock()
	if refuse {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		var f models.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}
		s.frames <- f
		s.mu.Lock()
		hook := s.onFrame
		s.mu.Unlock()
		if hook != nil {
			hook(s, f)
		}
	}
}

func (s *wsServer) send(t *testing.T, event string, data string, ack string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	conn := s.conns[len(s.conns)-1]
	f := models.Frame{Event: event, Ack: ack}
	if data != "" {
		f.Data = json.RawMessage(data)
	}
	require.NoError(t, conn.WriteJSON(f))
}

func (s *wsServer) dropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func (s *wsServer) setOnFrame(fn func(s *wsServer, f models.Frame)) {
	s.mu.Lock()
	s.onFrame = fn
	s.mu.Unlock()
}

func (s *wsServer) setRefuse(v bool) {
	s.mu.Lock()
	s.refuse = v
	s.mu.Unlock()
}

func (s *wsServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *wsServer) nextFrame(t *testing.T) models.Frame {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return models.Frame{}
	}
}

func testOptions(origin string) Options {
	return Options{
		Origin:     origin,
		Transports: []string{TransportWebsocket},
		Reconnect: ReconnectPolicy{
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     20 * time.Millisecond,
			Multiplier:   1.5,
			MaxAttempts:  5,
		},
		AckTimeout:   time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

func newTestChannel(t *testing.T, token string, opts Options) *Channel {
	t.Helper()
	ch, err := New(staticToken(token), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func connect(t *testing.T, ch *Channel) {
	t.Helper()
	require.NoError(t, ch.Connect(context.Background()))
	require.Equal(t, Connected, ch.State())
}

func TestConnectWithoutCredential(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "", testOptions(srv.srv.URL))

	err := ch.Connect(context.Background())

	assert.ErrorIs(t, err, session.ErrNoCredential)
	assert.Equal(t, Disconnected, ch.State())
	assert.Equal(t, 0, srv.dialCount())
}

func TestConnectCarriesToken(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "tok-1", testOptions(srv.srv.URL))

	connect(t, ch)

	assert.Equal(t, TransportWebsocket, ch.Transport())
	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, []string{"tok-1"}, srv.tokens)
}

func TestConnectRedialsWhenCredentialChanges(t *testing.T) {
	srv := newWSServer(t)
	sess := session.New("token-A", false)
	ch, err := New(sess, testOptions(srv.srv.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	connect(t, ch)

	require.NoError(t, ch.Connect(context.Background()))
	assert.Equal(t, 1, srv.dialCount())

	require.NoError(t, sess.Login("token-B", false))
	connect(t, ch)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, 2, srv.dials)
	assert.Equal(t, []string{"token-A", "token-B"}, srv.tokens)
}

func TestOperationsRequireConnection(t *testing.T) {
	ch := newTestChannel(t, "tok", testOptions("http://127.0.0.1:1"))

	assert.ErrorIs(t, ch.JoinRoom("r1"), ErrNotConnected)
	assert.ErrorIs(t, ch.LeaveRoom(), ErrNotConnected)
	_, err := ch.SendMessage("hi", 2)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, "", ch.CurrentRoom())
}

func TestJoinSecondRoomKeepsLatest(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))
	connect(t, ch)

	require.NoError(t, ch.JoinRoom("X"))
	require.NoError(t, ch.JoinRoom("Y"))
	assert.Equal(t, "Y", ch.CurrentRoom())

	first := srv.nextFrame(t)
	second := srv.nextFrame(t)
	assert.Equal(t, models.EventJoinRoom, first.Event)
	assert.JSONEq(t, `"X"`, string(first.Data))
	assert.JSONEq(t, `"Y"`, string(second.Data))

	require.NoError(t, ch.LeaveRoom())
	leave := srv.nextFrame(t)
	assert.Equal(t, models.EventLeaveRoom, leave.Event)
	assert.JSONEq(t, `"Y"`, string(leave.Data))
	assert.Equal(t, "", ch.CurrentRoom())

	require.NoError(t, ch.LeaveRoom())
}

func TestNotificationsFanOutInOrder(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))

	got := make(chan string, 16)
	unsubA := ch.OnNotification(func(n models.Notification) { got <- "a:" + string(n.Type) })
	ch.OnNotification(func(n models.Notification) { got <- "b:" + string(n.Type) })
	connect(t, ch)

	srv.send(t, models.EventNewListing, `{"id":7,"title":"Desk"}`, "")
	assert.Equal(t, "a:new_listing", recv(t, got))
	assert.Equal(t, "b:new_listing", recv(t, got))

	unsubA()
	unsubA()
	srv.send(t, models.EventPurchaseNotification, `{"listing_id":7}`, "")
	assert.Equal(t, "b:purchase", recv(t, got))

	srv.send(t, models.EventListingUpdate, `{"id":7}`, "")
	assert.Equal(t, "b:listing_update", recv(t, got))
	assert.Empty(t, got)
}

func TestNotificationCarriesPayload(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))

	got := make(chan models.Notification, 4)
	ch.OnNotification(func(n models.Notification) { got <- n })
	connect(t, ch)

	srv.send(t, models.EventNewListing, `{"id":7,"title":"Desk"}`, "")
	select {
	case n := <-got:
		assert.Equal(t, models.NotifyNewListing, n.Type)
		assert.JSONEq(t, `{"id":7,"title":"Desk"}`, string(n.Data))
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, got)
}

func TestChatMessageAndPanickingListener(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))

	got := make(chan models.ChatMessage, 4)
	ch.OnMessage(func(models.ChatMessage) { panic("boom") })
	ch.OnMessage(func(m models.ChatMessage) { got <- m })
	connect(t, ch)

	srv.send(t, models.EventChatMessage, `{"message":"hi","sender_id":3,"sender_email":"s@x.edu","timestamp":"2024-03-01T10:00:00"}`, "")
	select {
	case m := <-got:
		assert.Equal(t, "hi", m.Message)
		assert.Equal(t, 3, m.SenderID)
	case <-time.After(2 * time.Second):
		t.Fatal("no chat message")
	}
	assert.Equal(t, Connected, ch.State())
}

func TestSendMessageConfirmedByAck(t *testing.T) {
	srv := newWSServer(t)
	srv.setOnFrame(func(s *wsServer, f models.Frame) {
		if f.Event == models.EventSendMessage {
			s.mu.Lock()
			_ = s.conns[len(s.conns)-1].WriteJSON(models.Frame{Event: models.EventAck, Ack: f.Ack, Data: json.RawMessage(`{}`)})
			s.mu.Unlock()
		}
	})
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))
	deliveries := make(chan models.OutgoingMessage, 4)
	ch.OnDelivery(func(m models.OutgoingMessage) { deliveries <- m })
	connect(t, ch)
	require.NoError(t, ch.JoinRoom("room-1"))
	srv.nextFrame(t)

	msg, err := ch.SendMessage("still available?", 9)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryPending, msg.Status)

	frame := srv.nextFrame(t)
	assert.Equal(t, models.EventSendMessage, frame.Event)
	assert.Equal(t, msg.ClientID, frame.Ack)
	var payload models.SendMessagePayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, models.SendMessagePayload{
		Message: "still available?", RecipientID: 9, RoomID: "room-1", ClientID: msg.ClientID, Token: "tok",
	}, payload)

	assert.Equal(t, models.DeliveryPending, recvDelivery(t, deliveries).Status)
	confirmed := recvDelivery(t, deliveries)
	assert.Equal(t, models.DeliveryConfirmed, confirmed.Status)
	assert.Equal(t, msg.ClientID, confirmed.ClientID)
	assert.Equal(t, 0, ch.PendingMessages())
}

func TestSendMessageFailedByAckError(t *testing.T) {
	srv := newWSServer(t)
	srv.setOnFrame(func(s *wsServer, f models.Frame) {
		if f.Event == models.EventSendMessage {
			s.mu.Lock()
			_ = s.conns[len(s.conns)-1].WriteJSON(models.Frame{Event: models.EventAck, Ack: f.Ack, Data: json.RawMessage(`{"error":"Invalid token"}`)})
			s.mu.Unlock()
		}
	})
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))
	deliveries := make(chan models.OutgoingMessage, 4)
	ch.OnDelivery(func(m models.OutgoingMessage) { deliveries <- m })
	connect(t, ch)

	_, err := ch.SendMessage("hello", 2)
	require.NoError(t, err)

	recvDelivery(t, deliveries)
	failed := recvDelivery(t, deliveries)
	assert.Equal(t, models.DeliveryFailed, failed.Status)
	assert.Equal(t, "Invalid token", failed.Error)
}

func TestSendMessageAckTimeout(t *testing.T) {
	srv := newWSServer(t)
	opts := testOptions(srv.srv.URL)
	opts.AckTimeout = 30 * time.Millisecond
	ch := newTestChannel(t, "tok", opts)
	deliveries := make(chan models.OutgoingMessage, 4)
	ch.OnDelivery(func(m models.OutgoingMessage) { deliveries <- m })
	connect(t, ch)

	_, err := ch.SendMessage("hello", 2)
	require.NoError(t, err)

	recvDelivery(t, deliveries)
	failed := recvDelivery(t, deliveries)
	assert.Equal(t, models.DeliveryFailed, failed.Status)
	assert.Equal(t, errAckTimeout, failed.Error)
}

func TestCloseFailsPendingAndStopsReconnecting(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))
	deliveries := make(chan models.OutgoingMessage, 4)
	ch.OnDelivery(func(m models.OutgoingMessage) { deliveries <- m })
	connect(t, ch)

	_, err := ch.SendMessage("hello", 2)
	require.NoError(t, err)
	recvDelivery(t, deliveries)

	require.NoError(t, ch.Close())

	failed := recvDelivery(t, deliveries)
	assert.Equal(t, models.DeliveryFailed, failed.Status)
	assert.Equal(t, Disconnected, ch.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, srv.dialCount())
	assert.Equal(t, Disconnected, ch.State())
}

func TestReconnectRejoinsCurrentRoom(t *testing.T) {
	srv := newWSServer(t)
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))
	connect(t, ch)
	require.NoError(t, ch.JoinRoom("room-9"))
	srv.nextFrame(t)

	srv.dropAll()

	rejoin := srv.nextFrame(t)
	assert.Equal(t, models.EventJoinRoom, rejoin.Event)
	assert.JSONEq(t, `"room-9"`, string(rejoin.Data))
	require.Eventually(t, func() bool { return ch.State() == Connected }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, srv.dialCount())
	assert.Equal(t, "room-9", ch.CurrentRoom())
}

func TestReconnectGivesUp(t *testing.T) {
	srv := newWSServer(t)
	opts := testOptions(srv.srv.URL)
	opts.Reconnect.MaxAttempts = 2
	ch := newTestChannel(t, "tok", opts)

	states := make(chan State, 32)
	ch.OnStateChange(func(s State) { states <- s })
	connect(t, ch)

	srv.setRefuse(true)
	srv.dropAll()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if s == GaveUp {
				assert.Equal(t, 3, srv.dialCount())
				assert.Equal(t, GaveUp, ch.State())
				return
			}
		case <-deadline:
			t.Fatalf("never gave up, state %s", ch.State())
		}
	}
}

func TestFailedConnectKeepsRetrying(t *testing.T) {
	srv := newWSServer(t)
	srv.setRefuse(true)
	ch := newTestChannel(t, "tok", testOptions(srv.srv.URL))

	err := ch.Connect(context.Background())
	require.Error(t, err)

	srv.setRefuse(false)
	require.Eventually(t, func() bool { return ch.State() == Connected }, 2*time.Second, 5*time.Millisecond)
}

// pollServer implements the polling endpoints and refuses websocket
// upgrades.
type pollServer struct {
	srv *httptest.Server

	mu     sync.Mutex
	queue  []models.Frame
	posted []models.Frame
}

func newPollServer(t *testing.T) *pollServer {
	t.Helper()
	p := &pollServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upgrade blocked", http.StatusForbidden)
	})
	mux.HandleFunc("/realtime/poll/open", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "s-1"})
	})
	mux.HandleFunc("/realtime/poll", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sid") != "s-1" {
			http.Error(w, "unknown session", http.StatusGone)
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if r.Method == http.MethodPost {
			var f models.Frame
			if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			p.posted = append(p.posted, f)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		out := p.queue
		if out == nil {
			out = []models.Frame{}
		}
		p.queue = nil
		_ = json.NewEncoder(w).Encode(out)
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func TestPollingFallback(t *testing.T) {
	srv := newPollServer(t)
	opts := testOptions(srv.srv.URL)
	opts.Transports = []string{TransportWebsocket, TransportPolling}
	ch := newTestChannel(t, "tok", opts)

	got := make(chan models.Notification, 4)
	ch.OnNotification(func(n models.Notification) { got <- n })
	connect(t, ch)
	assert.Equal(t, TransportPolling, ch.Transport())

	srv.mu.Lock()
	srv.queue = append(srv.queue, models.Frame{Event: models.EventNewListing, Data: json.RawMessage(`{"id":3}`)})
	srv.mu.Unlock()

	select {
	case n := <-got:
		assert.Equal(t, models.NotifyNewListing, n.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification over polling")
	}

	require.NoError(t, ch.JoinRoom("room-2"))
	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.posted, 1)
	assert.Equal(t, models.EventJoinRoom, srv.posted[0].Event)
}

func TestNewRejectsUnknownTransport(t *testing.T) {
	_, err := New(staticToken("tok"), Options{Transports: []string{"carrier-pigeon"}})
	assert.ErrorIs(t, err, errUnknownTransport)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "gave_up", GaveUp.String())
	raw, err := json.Marshal(map[string]State{"state": Reconnecting})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"reconnecting"}`, string(raw))
}

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
		return ""
	}
}

func recvDelivery(t *testing.T, ch <-chan models.OutgoingMessage) models.OutgoingMessage {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery update")
		return models.OutgoingMessage{}
	}
}
