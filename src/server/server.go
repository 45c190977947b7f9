package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	agent "github.com/stratoflow/weather-agent"
	"github.com/stratoflow/weather-agent/src/config"
	"github.com/stratoflow/weather-agent/src/transcript"
)

// New builds the HTTP transport around the controller. The transport stays
// thin: it renders events and collects decisions, all turn logic lives in
// the controller.
func New(ctrl *agent.Controller, store transcript.Store, cfg config.Config) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	g.Use(cors.New(corsConfig(cfg)))
	attachRoutes(g, ctrl, store)
	return g
}

func corsConfig(cfg config.Config) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}
	c.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	return c
}

func attachRoutes(g *gin.Engine, ctrl *agent.Controller, store transcript.Store) {
	h := handlers{ctrl: ctrl, store: store}
	v1 := g.Group("/v1")
	v1.POST("/chat", h.chat)
	v1.POST("/confirm", h.confirm)
	v1.DELETE("/chat/:session", h.cancel)
	v1.GET("/turns/:session", h.turns)
	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

type handlers struct {
	ctrl  *agent.Controller
	store transcript.Store
}

type chatRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

// chat starts a turn and streams its events as SSE until the turn is
// terminal.
func (h handlers) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.ctrl.HandleUtterance(c.Request.Context(), req.SessionID, req.Text)
	if errors.Is(err, agent.ErrTurnInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(string(event.Kind), event)
		return true
	})
}

type confirmRequest struct {
	SessionID   string   `json:"sessionId" binding:"required"`
	SelectedIDs []string `json:"selectedIds"`
}

// confirm resumes a suspended turn with the user's selection.
func (h handlers) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.ctrl.SubmitConfirmation(req.SessionID, agent.ConfirmationResponse{SelectedIDs: req.SelectedIDs})
	if errors.Is(err, agent.ErrNoPendingConfirmation) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h handlers) cancel(c *gin.Context) {
	if err := h.ctrl.Cancel(c.Param("session")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h handlers) turns(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transcript store not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.store.List(c.Request.Context(), c.Param("session"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": records})
}
