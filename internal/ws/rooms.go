package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"marketplace-client/internal/models"
)

func (c *Channel) write(event string, data any, ack string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.WriteFrame(models.Frame{Event: event, Data: raw, Ack: ack})
}

func (c *Channel) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Connected && c.conn != nil
}

// JoinRoom records room as the current room and announces it. A previous
// room is not left; callers leave first.
func (c *Channel) JoinRoom(room string) error {
	ctx := context.Background()
	if !c.connected() {
		c.log.Warn(ctx, "join room skipped", "room", room, "error", ErrNotConnected)
		return ErrNotConnected
	}
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()

	if err := c.write(models.EventJoinRoom, room, ""); err != nil {
		c.log.Error(ctx, "join room failed", "room", room, "error", err)
		return err
	}
	c.log.Info(ctx, "joined room", "room", room)
	return nil
}

// LeaveRoom leaves the current room. Without one it does nothing.
func (c *Channel) LeaveRoom() error {
	ctx := context.Background()
	if !c.connected() {
		c.log.Warn(ctx, "leave room skipped", "error", ErrNotConnected)
		return ErrNotConnected
	}
	c.mu.Lock()
	room := c.room
	c.room = ""
	c.mu.Unlock()
	if room == "" {
		return nil
	}

	if err := c.write(models.EventLeaveRoom, room, ""); err != nil {
		c.log.Error(ctx, "leave room failed", "room", room, "error", err)
		return err
	}
	c.log.Info(ctx, "left room", "room", room)
	return nil
}

// SendMessage sends text to recipientID in the current room. The returned
// message is pending; delivery listeners see it confirmed or failed once
// the server acknowledges it or the ack timeout passes.
func (c *Channel) SendMessage(text string, recipientID int) (models.OutgoingMessage, error) {
	ctx := context.Background()
	if !c.connected() {
		c.log.Error(ctx, "send message skipped", "error", ErrNotConnected)
		return models.OutgoingMessage{}, ErrNotConnected
	}

	now := time.Now().UTC()
	msg := models.OutgoingMessage{
		ClientID:    uuid.NewString(),
		Message:     text,
		RecipientID: recipientID,
		RoomID:      c.CurrentRoom(),
		Status:      models.DeliveryPending,
		SentAt:      now,
		UpdatedAt:   now,
	}
	payload := models.SendMessagePayload{
		Message:     msg.Message,
		RecipientID: msg.RecipientID,
		RoomID:      msg.RoomID,
		ClientID:    msg.ClientID,
		Token:       c.creds.Token(),
	}

	c.outbox.add(msg)
	if err := c.write(models.EventSendMessage, payload, msg.ClientID); err != nil {
		c.log.Error(ctx, "send message failed", "client_id", msg.ClientID, "error", err)
		c.outbox.settle(msg.ClientID, err.Error())
		msg.Status = models.DeliveryFailed
		msg.Error = err.Error()
		return msg, err
	}
	return msg, nil
}
