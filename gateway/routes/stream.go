package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"hashmelody/core/events"
	"hashmelody/core/types"
)

const (
	wsWriteTimeout      = 10 * time.Second
	defaultStreamBuffer = 64
)

// Stream pushes committed ledger events to websocket clients. Subscribe it to
// the node; slow clients lose events rather than stalling the ledger.
type Stream struct {
	mu     sync.Mutex
	subs   map[*streamSub]struct{}
	buffer int
	logger *slog.Logger
}

type streamSub struct {
	ch      chan types.Event
	prefix  string
	dropped uint64
}

// NewStream returns a stream whose per-client queue holds buffer events.
func NewStream(buffer int, logger *slog.Logger) *Stream {
	if buffer <= 0 {
		buffer = defaultStreamBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{subs: make(map[*streamSub]struct{}), buffer: buffer, logger: logger}
}

// Emit implements events.Emitter.
func (s *Stream) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	payload := events.Payload(evt)
	if payload == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.prefix != "" && !strings.HasPrefix(payload.Type, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- payload.Clone():
		default:
			sub.dropped++
		}
	}
}

func (s *Stream) subscribe(prefix string) (*streamSub, func()) {
	sub := &streamSub{ch: make(chan types.Event, s.buffer), prefix: prefix}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub, func() {
		s.mu.Lock()
		delete(s.subs, sub)
		dropped := sub.dropped
		s.mu.Unlock()
		if dropped > 0 {
			s.logger.Warn("event stream client lagged", slog.Uint64("dropped", dropped))
		}
	}
}

func (s *Stream) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
// The optional type query parameter filters by event type prefix, for
// example ?type=purchase.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("type"))
	// The server write timeout would otherwise cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.stream(ctx, conn, prefix); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Stream) stream(ctx context.Context, conn *websocket.Conn, prefix string) error {
	sub, cancel := s.subscribe(prefix)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-sub.ch:
			if err := writeStreamEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeStreamEvent(ctx context.Context, conn *websocket.Conn, evt types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
