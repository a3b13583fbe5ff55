package httpserver

import (
	"net/http"

	"pong_server/internal/http/handlers"
	"pong_server/internal/http/middleware"
	"pong_server/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	WS                   *ws.Handler
	Stats                *handlers.StatsHandler
	AllowedOrigin        string
	ConnectRatePerMinute int
	Version              string
}

// RegisterRoutes mounts the websocket streams and the read-only HTTP API.
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.CORS(d.AllowedOrigin))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": d.Version})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wsGroup := r.Group("/ws", middleware.RateLimit("ws", d.ConnectRatePerMinute))
	wsGroup.GET("/matchmaking", d.WS.Matchmaking)
	wsGroup.GET("/game/:roomId", d.WS.Gameplay)
	wsGroup.GET("/tournament", d.WS.Tournament)

	api := r.Group("/api")
	api.GET("/rooms", d.WS.Rooms)
	api.GET("/players/:username/stats", d.Stats.PlayerStats)
	api.GET("/matches/recent", d.Stats.RecentMatches)
}
