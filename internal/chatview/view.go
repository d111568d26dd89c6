// Package chatview keeps the ordered chat history shown per room: messages
// pushed by the server plus optimistic entries for messages this client
// sent, updated in place as their delivery status changes.
package chatview

import (
	"strconv"
	"sync"
	"time"

	"marketplace-client/internal/models"
)

type EntryKind string

const (
	Received EntryKind = "received"
	Outgoing EntryKind = "outgoing"
)

type Entry struct {
	Kind        EntryKind             `json:"kind"`
	ClientID    string                `json:"client_id,omitempty"`
	Message     string                `json:"message"`
	SenderID    int                   `json:"sender_id,omitempty"`
	SenderEmail string                `json:"sender_email,omitempty"`
	RecipientID int                   `json:"recipient_id,omitempty"`
	Status      models.DeliveryStatus `json:"status,omitempty"`
	Error       string                `json:"error,omitempty"`
	At          time.Time             `json:"at"`
}

// DefaultLimit caps the entries kept per room.
const DefaultLimit = 200

type View struct {
	limit int

	mu    sync.Mutex
	rooms map[string][]Entry
}

func New(limit int) *View {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &View{limit: limit, rooms: make(map[string][]Entry)}
}

// RoomKey names the room a message belongs to: its room id, else its
// listing id.
func RoomKey(roomID string, listingID int) string {
	if roomID != "" {
		return roomID
	}
	if listingID > 0 {
		return strconv.Itoa(listingID)
	}
	return ""
}

// Receive appends a message pushed by the server.
func (v *View) Receive(msg models.ChatMessage) {
	at := msg.Timestamp.Time
	if at.IsZero() {
		at = time.Now().UTC()
	}
	v.append(RoomKey(msg.RoomID, msg.ListingID), Entry{
		Kind:        Received,
		Message:     msg.Message,
		SenderID:    msg.SenderID,
		SenderEmail: msg.SenderEmail,
		At:          at,
	})
}

// Track records an outgoing message. The first call appends it; later
// calls with the same client id update status and error in place.
func (v *View) Track(msg models.OutgoingMessage) {
	room := msg.RoomID
	v.mu.Lock()
	entries := v.rooms[room]
	for i := range entries {
		if entries[i].Kind == Outgoing && entries[i].ClientID == msg.ClientID {
			entries[i].Status = msg.Status
			entries[i].Error = msg.Error
			v.mu.Unlock()
			return
		}
	}
	v.mu.Unlock()

	v.append(room, Entry{
		Kind:        Outgoing,
		ClientID:    msg.ClientID,
		Message:     msg.Message,
		RecipientID: msg.RecipientID,
		Status:      msg.Status,
		Error:       msg.Error,
		At:          msg.SentAt,
	})
}

// Load replaces a room's history with messages fetched from the server,
// keeping outgoing entries that are not settled yet.
func (v *View) Load(room string, history []models.ChatMessage) {
	entries := make([]Entry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, Entry{
			Kind:        Received,
			Message:     msg.Message,
			SenderID:    msg.SenderID,
			SenderEmail: msg.SenderEmail,
			At:          msg.Timestamp.Time,
		})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.rooms[room] {
		if e.Kind == Outgoing && e.Status == models.DeliveryPending {
			entries = append(entries, e)
		}
	}
	v.rooms[room] = v.trim(entries)
}

func (v *View) Entries(room string) []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Entry, len(v.rooms[room]))
	copy(out, v.rooms[room])
	return out
}

func (v *View) Clear(room string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.rooms, room)
}

func (v *View) append(room string, e Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rooms[room] = v.trim(append(v.rooms[room], e))
}

func (v *View) trim(entries []Entry) []Entry {
	if len(entries) <= v.limit {
		return entries
	}
	return append([]Entry(nil), entries[len(entries)-v.limit:]...)
}
