package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/version"
)

// alertView is the debug rendering of one alert.
type alertView struct {
	alert.Descriptor
	Title  string `json:"market_title,omitempty"`
	Valid  bool   `json:"valid"`
	Last   any    `json:"last,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	streamStatus := "connected"
	code := http.StatusOK
	if s.deps.Stream == nil || !s.deps.Stream.IsConnected() {
		streamStatus = "disconnected"
		code = http.StatusServiceUnavailable
	}

	dbStatus := "disabled"
	if s.deps.Database != nil {
		dbStatus = "ok"
		if err := s.deps.Database.Ping(c.Request.Context()); err != nil {
			dbStatus = "error: " + err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	health := "ok"
	if code != http.StatusOK {
		health = "degraded"
	}

	c.JSON(code, gin.H{
		"health": health,
		"stream": streamStatus,
		"db":     dbStatus,
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": version.Version,
		"commit":  version.Commit,
		"built":   version.BuildTime,
	})
}

func (s *Server) handleAlerts(c *gin.Context) {
	var views []alertView
	err := s.onLoop(c, func() {
		var alerts []*alert.Alert
		switch c.DefaultQuery("view", "all") {
		case "open":
			alerts = s.deps.Manager.Open()
		case "valid":
			alerts = s.deps.Manager.Valid()
		default:
			alerts = s.deps.Manager.All()
		}
		views = make([]alertView, 0, len(alerts))
		for _, a := range alerts {
			views = append(views, render(a))
		}
	})
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "alerts": views})
}

func (s *Server) handleAlert(c *gin.Context) {
	var (
		view  alertView
		found bool
	)
	err := s.onLoop(c, func() {
		if a := s.deps.Manager.Find(c.Param("uuid")); a != nil {
			view, found = render(a), true
		}
	})
	if err != nil {
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleBacklog(c *gin.Context) {
	var backlog []alert.Descriptor
	if err := s.onLoop(c, func() { backlog = s.deps.Manager.Backlog() }); err != nil {
		return
	}
	if backlog == nil {
		backlog = []alert.Descriptor{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(backlog), "backlog": backlog})
}

// debugMarketLimit caps the /debug/markets listing.
const debugMarketLimit = 100

func (s *Server) handleMarkets(c *gin.Context) {
	if s.deps.Markets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market registry not running"})
		return
	}

	markets := s.deps.Markets()
	count := len(markets)
	if len(markets) > debugMarketLimit {
		markets = markets[:debugMarketLimit]
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   count,
		"showing": len(markets),
		"markets": markets,
	})
}

// onLoop runs fn on the alert loop and writes an error response on failure.
func (s *Server) onLoop(c *gin.Context, fn func()) error {
	if s.deps.Loop == nil || s.deps.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert manager not running"})
		return alert.ErrExecutorStopped
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), debugTimeout)
	defer cancel()

	if err := s.deps.Loop.Do(ctx, fn); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return err
	}
	return nil
}

func render(a *alert.Alert) alertView {
	v := alertView{Descriptor: a.Descriptor(), Valid: a.IsValid()}
	if m := a.Market(); m != nil {
		v.Title = m.Title()
	}
	if last := a.Last(); last != nil {
		v.Last = *last
	}
	return v
}
