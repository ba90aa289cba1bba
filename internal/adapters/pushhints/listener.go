// Package pushhints listens on the backend's bookings WebSocket. A message is
// only a hint that the first bookings page is stale; its payload never enters
// the cache.
package pushhints

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/domain"
)

const (
	DefaultReconnect   = 3 * time.Second
	DefaultMaxAttempts = 5

	maxMessageSize = 64 << 10
)

// Refresher is the bookings client as seen by the listener.
type Refresher interface {
	FetchPage(ctx context.Context, offset, limit int) (domain.Page[domain.Booking], error)
}

type Config struct {
	URL         string
	PageSize    int
	Reconnect   time.Duration
	MaxAttempts int
	Dialer      *websocket.Dialer
}

type Listener struct {
	cfg    Config
	target Refresher
}

func New(cfg Config, target Refresher) *Listener {
	if cfg.Reconnect <= 0 {
		cfg.Reconnect = DefaultReconnect
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Listener{cfg: cfg, target: target}
}

// Run connects and reads until ctx is done, the server closes normally, or
// MaxAttempts consecutive reconnects fail. A successful connect resets the count.
func (l *Listener) Run(ctx context.Context) {
	attempts := 0
	for {
		conn, _, err := l.cfg.Dialer.DialContext(ctx, l.cfg.URL, nil)
		if err == nil {
			attempts = 0
			log.Info().Str("url", l.cfg.URL).Msg("push listener connected")
			err = l.read(ctx, conn)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Info().Msg("push listener closed by server")
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if attempts >= l.cfg.MaxAttempts {
			log.Warn().Err(err).Int("attempts", attempts).Msg("push listener giving up")
			return
		}
		attempts++
		log.Warn().Err(err).Int("attempt", attempts).Int("max", l.cfg.MaxAttempts).Msg("push listener reconnecting")

		t := time.NewTimer(l.cfg.Reconnect)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (l *Listener) read(ctx context.Context, conn *websocket.Conn) error {
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

	conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		kind, ok := hintKind(data)
		if !ok {
			continue
		}
		observability.ObservePush(kind)
		if _, err := l.target.FetchPage(ctx, 0, l.cfg.PageSize); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("kind", kind).Msg("refresh after push hint failed")
		}
	}
}

// hintKind returns the message type of a push frame; unknown frames are ignored.
func hintKind(data []byte) (string, bool) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug().Err(err).Msg("push frame is not JSON")
		return "", false
	}
	for _, k := range []string{"new_booking", "updated_booking", "deleted_booking_id"} {
		if _, ok := msg[k]; ok {
			return k, true
		}
	}
	return "", false
}
