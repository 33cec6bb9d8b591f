package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// BookingsChanged is the event type the server sends after any booking write.
const BookingsChanged = "bookings-changed"

// Watch subscribes to the server's WebSocket feed and reloads s on every
// bookings-changed event. It blocks until ctx ends or the connection drops.
func Watch[T any](ctx context.Context, s *Store[T]) error {
	c := s.res.c
	wsURL, err := socketURL(c.baseURL, c.Token())
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Debug("ignoring malformed event", zap.ByteString("payload", raw))
			continue
		}
		if ev.Type != BookingsChanged {
			continue
		}
		if err := s.Load(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("reload after event failed", zap.Error(err))
		}
	}
}

func socketURL(baseURL, tok string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("unsupported base URL scheme " + u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	if tok != "" {
		q := u.Query()
		q.Set("token", tok)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
