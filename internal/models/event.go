package models

import "encoding/json"

// Realtime event names used on the wire.
const (
	EventChatMessage          = "chat_message"
	EventListingUpdate        = "listing_update"
	EventNewListing           = "new_listing"
	EventPurchaseNotification = "purchase_notification"
	EventConnectSuccess       = "connect_success"
	EventConnectError         = "connect_error"
	EventAck                  = "ack"

	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
)

// NotificationType tags notifications handed to listeners.
type NotificationType string

const (
	NotifyListingUpdate NotificationType = "listing_update"
	NotifyNewListing    NotificationType = "new_listing"
	NotifyPurchase      NotificationType = "purchase"
)

// Notification wraps a push event other than chat.
type Notification struct {
	Type NotificationType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// Frame is the realtime wire envelope. Ack is set on frames that expect or
// carry an acknowledgement.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   string          `json:"ack,omitempty"`
}

// SendMessagePayload is the data of an outbound send_message frame.
type SendMessagePayload struct {
	Message     string `json:"message"`
	RecipientID int    `json:"recipient_id"`
	RoomID      string `json:"room_id,omitempty"`
	ClientID    string `json:"client_id"`
	Token       string `json:"token"`
}

// AckPayload is the data of an inbound ack frame.
type AckPayload struct {
	Error string `json:"error,omitempty"`
}

// ConnectErrorPayload is the data of an inbound connect_error frame.
type ConnectErrorPayload struct {
	Error string `json:"error"`
}
