package handlers

import (
	"context"
	"net/http"
	"strconv"

	"pong_server/internal/domain"
	"pong_server/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultRecent = 20
	maxRecent     = 100
)

// StatsReader is the read side of the match repository.
type StatsReader interface {
	GetStats(ctx context.Context, username string) (*domain.PlayerStats, error)
	Recent(ctx context.Context, limit int) ([]*domain.MatchHistory, error)
}

// Статистика игроков и история матчей
type StatsHandler struct {
	repo StatsReader
}

// repo == nil: база не настроена, ручки отвечают 503
func NewStatsHandler(repo StatsReader) *StatsHandler {
	return &StatsHandler{repo: repo}
}

func (h *StatsHandler) available(c *gin.Context) bool {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return false
	}
	return true
}

// GET /api/players/:username/stats
func (h *StatsHandler) PlayerStats(c *gin.Context) {
	if !h.available(c) {
		return
	}
	username := c.Param("username")
	stats, err := h.repo.GetStats(c.Request.Context(), username)
	if err != nil {
		logger.Error("get player stats", "user", username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/matches/recent?limit=N
func (h *StatsHandler) RecentMatches(c *gin.Context) {
	if !h.available(c) {
		return
	}
	limit := defaultRecent
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad limit"})
			return
		}
		limit = min(n, maxRecent)
	}

	matches, err := h.repo.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.Error("get recent matches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get matches"})
		return
	}
	if matches == nil {
		matches = []*domain.MatchHistory{}
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
