package ws

import "time"

// ConnInfo describes one established connection. It rides along on
// lifecycle events.
type ConnInfo struct {
	ConnID      string
	Transport   string
	Origin      string
	TraceID     string
	Attempt     int
	ConnectedAt time.Time
}

func (i ConnInfo) payload(event, reason string) map[string]interface{} {
	ws := map[string]interface{}{
		"event":     event,
		"conn_id":   i.ConnID,
		"transport": i.Transport,
		"origin":    i.Origin,
		"attempt":   i.Attempt,
	}
	if !i.ConnectedAt.IsZero() {
		ws["duration_ms"] = time.Since(i.ConnectedAt).Milliseconds()
	}
	if reason != "" {
		ws["reason"] = reason
	}
	return map[string]interface{}{"ws": ws}
}
