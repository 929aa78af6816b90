package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	ctx     context.Context
	relay   *app.Relay
	reg     *app.Registry
	started time.Time
}

// bootstrap starts the relay on first call; later calls report it already runs.
func (h *handlers) bootstrap(c *gin.Context) {
	status := "running"
	if h.relay.EnsureRunning(h.ctx) {
		status = "started"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *handlers) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.reg.List()})
}

func (h *handlers) members(c *gin.Context) {
	out := []core.MemberDTO{}
	if room, ok := h.reg.Room(domain.RoomName(c.Param("name"))); ok {
		out = room.MembersSnapshot()
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"relay":     h.relay.Running(),
	})
}
