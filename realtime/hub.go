package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Sender delivers one event to one connection.
type Sender interface {
	Send(Event) error
}

// Hub tracks open connections per board. It is process-local: connections
// held by other instances do not receive events.
type Hub struct {
	mu     sync.RWMutex
	boards map[uint]map[string]Sender
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		boards: make(map[uint]map[string]Sender),
		logger: logger,
	}
}

// Register adds s to boardID and returns its connection id.
func (h *Hub) Register(boardID uint, s Sender) string {
	connID := ulid.Make().String()

	h.mu.Lock()
	defer h.mu.Unlock()
	peers, ok := h.boards[boardID]
	if !ok {
		peers = make(map[string]Sender)
		h.boards[boardID] = peers
	}
	peers[connID] = s
	return connID
}

func (h *Hub) Unregister(boardID uint, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(boardID, connID)
}

func (h *Hub) removeLocked(boardID uint, connID string) {
	peers, ok := h.boards[boardID]
	if !ok {
		return
	}
	delete(peers, connID)
	if len(peers) == 0 {
		delete(h.boards, boardID)
	}
}

// Broadcast sends ev to every connection on boardID. Delivery is best-effort:
// a connection whose send fails is dropped.
func (h *Hub) Broadcast(_ context.Context, boardID uint, ev Event) {
	h.mu.RLock()
	snapshot := make(map[string]Sender, len(h.boards[boardID]))
	for connID, s := range h.boards[boardID] {
		snapshot[connID] = s
	}
	h.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	var failed []string
	for connID, s := range snapshot {
		if err := s.Send(ev); err != nil {
			h.logger.Warn("dropping websocket connection",
				slog.Uint64("board_id", uint64(boardID)),
				slog.String("conn_id", connID),
				slog.String("event", string(ev.Type)),
				slog.Any("error", err),
			)
			failed = append(failed, connID)
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, connID := range failed {
			h.removeLocked(boardID, connID)
		}
		h.mu.Unlock()
	}

	h.logger.Debug("broadcast",
		slog.Uint64("board_id", uint64(boardID)),
		slog.String("event", string(ev.Type)),
		slog.Int("delivered", len(snapshot)-len(failed)),
	)
}

func (h *Hub) ActiveConnections(boardID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.boards[boardID])
}
