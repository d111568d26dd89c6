package ws

import (
	"sync"
	"time"

	"marketplace-client/internal/models"
	"marketplace-client/internal/observability"
)

const errAckTimeout = "no acknowledgement from server"

// outbox tracks sent messages until the server acknowledges them.
type outbox struct {
	timeout  time.Duration
	onChange func(models.OutgoingMessage)

	mu      sync.Mutex
	pending map[string]*pendingMessage
}

type pendingMessage struct {
	msg   models.OutgoingMessage
	timer *time.Timer
}

func newOutbox(timeout time.Duration, onChange func(models.OutgoingMessage)) *outbox {
	return &outbox{
		timeout:  timeout,
		onChange: onChange,
		pending:  make(map[string]*pendingMessage),
	}
}

func (o *outbox) add(msg models.OutgoingMessage) {
	o.mu.Lock()
	p := &pendingMessage{msg: msg}
	if o.timeout > 0 {
		id := msg.ClientID
		p.timer = time.AfterFunc(o.timeout, func() { o.settle(id, errAckTimeout) })
	}
	o.pending[msg.ClientID] = p
	n := len(o.pending)
	o.mu.Unlock()

	observability.SetPendingMessages(n)
	o.onChange(msg)
}

// settle moves a pending message to confirmed (empty errMsg) or failed.
// Unknown or already settled ids are ignored.
func (o *outbox) settle(clientID, errMsg string) bool {
	o.mu.Lock()
	p, ok := o.pending[clientID]
	if !ok {
		o.mu.Unlock()
		return false
	}
	delete(o.pending, clientID)
	n := len(o.pending)
	o.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	msg := p.msg
	msg.UpdatedAt = time.Now().UTC()
	if errMsg == "" {
		msg.Status = models.DeliveryConfirmed
	} else {
		msg.Status = models.DeliveryFailed
		msg.Error = errMsg
	}
	observability.SetPendingMessages(n)
	observability.IncDelivery(string(msg.Status))
	o.onChange(msg)
	return true
}

func (o *outbox) failAll(reason string) {
	o.mu.Lock()
	ids := make([]string, 0, len(o.pending))
	for id := range o.pending {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		o.settle(id, reason)
	}
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
