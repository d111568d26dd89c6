package ws

import (
	"context"
	"encoding/json"

	"marketplace-client/internal/models"
	"marketplace-client/internal/observability"
)

var notificationTypes = map[string]models.NotificationType{
	models.EventListingUpdate:        models.NotifyListingUpdate,
	models.EventNewListing:           models.NotifyNewListing,
	models.EventPurchaseNotification: models.NotifyPurchase,
}

// dispatch routes one inbound frame. It runs on the reader goroutine, so
// listeners see frames in transport order.
func (c *Channel) dispatch(frame models.Frame) {
	ctx := context.Background()
	observability.IncWSEvent(frame.Event)

	if kind, ok := notificationTypes[frame.Event]; ok {
		c.notifications.emit(models.Notification{Type: kind, Data: frame.Data})
		return
	}

	switch frame.Event {
	case models.EventChatMessage:
		var msg models.ChatMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.log.Warn(ctx, "malformed chat message", "error", err)
			return
		}
		c.messages.emit(msg)
	case models.EventAck:
		var ack models.AckPayload
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &ack); err != nil {
				ack.Error = "malformed acknowledgement"
			}
		}
		if ack.Error != "" {
			c.log.Error(ctx, "server rejected message", "client_id", frame.Ack, "error", ack.Error)
		}
		if !c.outbox.settle(frame.Ack, ack.Error) {
			c.log.Debug(ctx, "ack for unknown message", "client_id", frame.Ack)
		}
	case models.EventConnectSuccess:
		c.log.Info(ctx, "realtime session accepted")
	case models.EventConnectError:
		var payload models.ConnectErrorPayload
		_ = json.Unmarshal(frame.Data, &payload)
		c.log.Error(ctx, "realtime connect error", "error", payload.Error)
		c.mu.Lock()
		info := c.info
		c.mu.Unlock()
		c.publish(ctx, "ws_error", info, payload.Error)
	default:
		c.log.Debug(ctx, "ignoring realtime event", "event", frame.Event)
	}
}
