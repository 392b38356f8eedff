package stream

import (
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Hub fans settled rounds out to websocket subscribers. Each subscriber
// gets a bounded queue; a client that can't keep up is dropped rather
// than allowed to stall the settlement path.
type Hub struct {
	logger    *zap.Logger
	queueSize int

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	ch chan []byte
}

func NewHub(queueSize int, logger *zap.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Hub{
		logger:    logger,
		queueSize: queueSize,
		subs:      make(map[*subscriber]struct{}),
	}
}

// Publish marshals v once and enqueues it for every subscriber.
// Never blocks the caller.
func (h *Hub) Publish(v any) {
	if h == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("stream payload marshal failed", zap.Error(err))
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- payload:
		default:
			// Queue full: drop the subscriber, its write loop will exit.
			close(sub.ch)
			delete(h.subs, sub)
		}
	}
}

func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams rounds until the client
// disconnects or the queue overflows.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	sub := &subscriber{ch: make(chan []byte, h.queueSize)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if _, ok := h.subs[sub]; ok {
			delete(h.subs, sub)
		}
		h.mu.Unlock()
	}()

	// The feed is write-only; CloseRead surfaces client disconnects
	// through ctx.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case payload, ok := <-sub.ch:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}
