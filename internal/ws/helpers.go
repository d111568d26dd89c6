package ws

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// endpoint joins origin and path and carries the credential as the token
// query parameter.
func endpoint(origin, path, token string, extra url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return "", fmt.Errorf("parse origin: %w", err)
	}
	u.Path = u.Path + path
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func websocketURL(origin, path, token string) (string, error) {
	raw, err := endpoint(origin, path, token, nil)
	if err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(raw, "https://"):
		return "wss://" + strings.TrimPrefix(raw, "https://"), nil
	case strings.HasPrefix(raw, "http://"):
		return "ws://" + strings.TrimPrefix(raw, "http://"), nil
	}
	return raw, nil
}
