package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/vnkhanh/taskboard-server/utils"
)

const writeTimeout = 5 * time.Second

// Authenticator resolves the user behind a WebSocket upgrade request.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (uint, error)
}

// MembershipChecker reports whether a user may watch a board.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, boardID uint) (bool, error)
}

// Handler upgrades board subscription requests.
type Handler struct {
	hub     *Hub
	auth    Authenticator
	members MembershipChecker
	origins []string
}

// NewHandler builds the upgrade handler. An empty origins list accepts any origin.
func NewHandler(hub *Hub, auth Authenticator, members MembershipChecker, origins []string) *Handler {
	return &Handler{hub: hub, auth: auth, members: members, origins: origins}
}

// ServeBoard authenticates the caller, checks membership of boardID and then
// upgrades the connection.
func (h *Handler) ServeBoard(w http.ResponseWriter, r *http.Request, boardID uint) {
	log := utils.LoggerFrom(r.Context()).With(slog.Uint64("board_id", uint64(boardID)))

	userID, err := h.auth.AuthenticateRequest(r)
	if err != nil {
		log.Warn("websocket unauthorized", slog.Any("error", err))
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	ok, err := h.members.IsMember(r.Context(), userID, boardID)
	if err != nil {
		log.Error("websocket membership lookup failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		log.Warn("websocket forbidden", slog.Uint64("user_id", uint64(userID)))
		http.Error(w, "not a member of this board", http.StatusForbidden)
		return
	}

	srv := websocket.Server{
		Handshake: h.handshake,
		Handler: func(conn *websocket.Conn) {
			h.serveConn(conn, boardID, log.With(slog.Uint64("user_id", uint64(userID))))
		},
	}
	srv.ServeHTTP(w, r)
}

func (h *Handler) handshake(cfg *websocket.Config, r *http.Request) error {
	if len(h.origins) == 0 {
		return nil
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return nil
		}
	}
	return errors.New("origin not allowed")
}

func (h *Handler) serveConn(conn *websocket.Conn, boardID uint, log *slog.Logger) {
	defer conn.Close()

	p := &peer{conn: conn, encoder: json.NewEncoder(conn)}
	connID := h.hub.Register(boardID, p)
	defer h.hub.Unregister(boardID, connID)

	log = log.With(slog.String("conn_id", connID))
	if err := p.Send(welcomeEvent(boardID, connID, h.hub.ActiveConnections(boardID))); err != nil {
		log.Warn("websocket welcome failed", slog.Any("error", err))
		return
	}
	log.Info("websocket connected")

	// Incoming frames carry nothing; read until the client goes away.
	for {
		var msg string
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			log.Info("websocket disconnected")
			return
		}
	}
}

type peer struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	encoder *json.Encoder
}

func (p *peer) Send(ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return p.encoder.Encode(ev)
}
