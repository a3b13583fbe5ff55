package ws

import (
	"net/http"

	"pong_server/internal/logger"
	"pong_server/internal/tournament"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// IdentityResolver maps the connect-time token to a player identity. It never
// refuses: a bad token yields a placeholder identity. guest is the placeholder
// a tokenless client was given on an earlier stream, if any.
type IdentityResolver interface {
	Resolve(token, guest string) string
}

// содержит зависимости для обработки WebSocket
type Handler struct {
	hub        *Hub
	tournament *tournament.Tournament
	auth       IdentityResolver
	upgrader   websocket.Upgrader
}

func NewHandler(hub *Hub, t *tournament.Tournament, auth IdentityResolver, allowedOrigin string) *Handler {
	return &Handler{
		hub:        hub,
		tournament: t,
		auth:       auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

func (h *Handler) upgrade(c *gin.Context, stream string) (*Client, string, bool) {
	// токен приходит в query: после handshake заголовки не передать
	identity := h.auth.Resolve(c.Query("token"), c.Query("guest"))
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "stream", stream, "user", identity, "error", err)
		return nil, "", false
	}
	return NewClient(conn, stream, identity), identity, true
}

// Matchmaking serves /ws/matchmaking?token=&mode=ai|pvp. The stream carries
// no inbound messages.
func (h *Handler) Matchmaking(c *gin.Context) {
	client, identity, ok := h.upgrade(c, "matchmaking")
	if !ok {
		return
	}
	h.hub.Join(identity, c.DefaultQuery("mode", ModePvP), client)
	client.Serve(func([]byte) {})
	h.hub.Leave(client)
}

// Gameplay serves /ws/game/:roomId?token=.
func (h *Handler) Gameplay(c *gin.Context) {
	roomID := c.Param("roomId")
	client, identity, ok := h.upgrade(c, "gameplay")
	if !ok {
		return
	}
	if err := h.hub.ConnectGameplay(roomID, identity, client); err != nil {
		// writePump flushes the error notice and closes the socket
		go client.writePump()
		return
	}
	client.Serve(func(raw []byte) {
		msg, err := DecodeGameplay(raw)
		if err != nil {
			return
		}
		h.hub.HandleGameplayMessage(roomID, identity, msg)
	})
	h.hub.DisconnectGameplay(roomID, client)
}

// Tournament serves /ws/tournament?token=.
func (h *Handler) Tournament(c *gin.Context) {
	client, identity, ok := h.upgrade(c, "tournament")
	if !ok {
		return
	}
	h.tournament.Connect(identity, client)
	client.Serve(func(raw []byte) {
		action, err := tournament.Decode(raw)
		if err != nil {
			logger.Debug("tournament frame dropped", "user", identity, "error", err)
			return
		}
		h.tournament.Handle(identity, client, action)
	})
	h.tournament.Disconnect(identity, client)
}

// Rooms serves GET /api/rooms.
func (h *Handler) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rooms":   h.hub.Snapshot(),
		"waiting": len(h.hub.Waiting()),
	})
}
