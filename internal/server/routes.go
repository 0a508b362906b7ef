package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/herald/internal/broadcast"
	"github.com/zulandar/herald/internal/inbox"
	"github.com/zulandar/herald/internal/models"
	"github.com/zulandar/herald/internal/scanner"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/healthz", handleHealth(opts.DB))

	api := router.Group("/api")
	api.GET("/events", handleSSE(opts.Broadcaster, opts.Config.Heartbeat()))
	api.GET("/messages", handleListMessages(opts.DB))
	api.POST("/messages", handleAdminSend(opts.DB, opts.Broadcaster))
	api.POST("/messages/:id/read", handleMarkRead(opts.DB))
	api.POST("/messages/:id/dismiss", handleDismiss(opts.DB))
	api.POST("/triggers/fire", handleFireTrigger(opts.Scanner))
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// messageView is the wire shape of an inbox message: content is decoded into
// blocks rather than passed through as a JSON string.
type messageView struct {
	ID          uint                  `json:"id"`
	TemplateKey string                `json:"template_key,omitempty"`
	Blocks      []models.ContentBlock `json:"blocks"`
	Source      string                `json:"source"`
	Priority    int                   `json:"priority"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	ExpiresAt   *time.Time            `json:"expires_at,omitempty"`
}

func handleListMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
			return
		}
		unreadOnly := c.Query("all") == ""

		msgs, err := inbox.ListForUser(db, userID, unreadOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		views := make([]messageView, 0, len(msgs))
		for i := range msgs {
			blocks, err := inbox.Blocks(&msgs[i])
			if err != nil {
				// A corrupt stored message should not hide the rest of
				// the inbox.
				continue
			}
			views = append(views, messageView{
				ID:          msgs[i].ID,
				TemplateKey: msgs[i].TemplateKey,
				Blocks:      blocks,
				Source:      msgs[i].Source,
				Priority:    msgs[i].Priority,
				Status:      msgs[i].Status,
				CreatedAt:   msgs[i].CreatedAt,
				ExpiresAt:   msgs[i].ExpiresAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"messages": views})
	}
}

func handleMarkRead(db *gorm.DB) gin.HandlerFunc {
	return messageStatusHandler(db, inbox.MarkRead)
}

func handleDismiss(db *gorm.DB) gin.HandlerFunc {
	return messageStatusHandler(db, inbox.Dismiss)
}

func messageStatusHandler(db *gorm.DB, apply func(*gorm.DB, uint) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
			return
		}
		if err := apply(db, uint(id)); err != nil {
			if strings.Contains(err.Error(), "not found") {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

type fireRequest struct {
	Event  string `json:"event" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

// handleFireTrigger runs the direct-event delivery path synchronously and
// reports how many messages it produced.
func handleFireTrigger(s *scanner.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req fireRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		delivered, err := s.FireEvent(req.Event, req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"delivered": delivered})
	}
}

type adminSendRequest struct {
	UserID    string                `json:"user_id" binding:"required"`
	Blocks    []models.ContentBlock `json:"blocks" binding:"required"`
	Priority  int                   `json:"priority"`
	ExpiresAt *time.Time            `json:"expires_at"`
}

// handleAdminSend creates a message directly, bypassing triggers. The
// message still flows through the normal push path.
func handleAdminSend(db *gorm.DB, b *broadcast.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adminSendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		msg, err := inbox.Create(db, req.UserID, req.Blocks, inbox.CreateOpts{
			Source:    models.SourceAdmin,
			Priority:  req.Priority,
			ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		b.Publish(req.UserID, broadcast.EventMessage, gin.H{
			"message_id": msg.ID,
			"priority":   msg.Priority,
			"blocks":     req.Blocks,
		})
		c.JSON(http.StatusCreated, gin.H{"id": msg.ID})
	}
}
