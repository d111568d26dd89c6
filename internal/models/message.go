package models

import "time"

// ChatMessage is a message pushed by the server or loaded from history.
type ChatMessage struct {
	ID          int       `json:"id,omitempty"`
	Message     string    `json:"message"`
	SenderID    int       `json:"sender_id"`
	SenderEmail string    `json:"sender_email,omitempty"`
	Timestamp   Timestamp `json:"timestamp"`
	ListingID   int       `json:"listing_id,omitempty"`
	RoomID      string    `json:"room_id,omitempty"`
	IsSender    bool      `json:"is_sender,omitempty"`
}

// DeliveryStatus tracks an outgoing message from send to acknowledgement.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryConfirmed DeliveryStatus = "confirmed"
	DeliveryFailed    DeliveryStatus = "failed"
)

// OutgoingMessage is the optimistic record of a message this client sent.
// ClientID correlates it with the server acknowledgement.
type OutgoingMessage struct {
	ClientID    string         `json:"client_id"`
	Message     string         `json:"message"`
	RecipientID int            `json:"recipient_id"`
	RoomID      string         `json:"room_id,omitempty"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	SentAt      time.Time      `json:"sent_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
