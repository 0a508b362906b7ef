package server

import (
	"github.com/gin-gonic/gin"
	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/profile"
	"github.com/zulandar/herald/internal/ratelimit"
	"gorm.io/gorm"
)

// rateLimitMiddleware applies the persistent sliding-window limiter to every
// request, keyed by client IP and route path. A rejected request gets a
// structured 429; a limiter storage failure admits the request (the limiter
// fails open, so a degraded store never takes the API down with it).
func rateLimitMiddleware(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		limit := cfg.EndpointLimit(endpoint)
		window := cfg.Window()

		allowed, retryAfter := ratelimit.Check(db, c.ClientIP(), endpoint, limit, window)
		if !allowed {
			c.AbortWithStatusJSON(429, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"window":      int(window.Seconds()),
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// activityMiddleware bumps the calling user's last-seen timestamp so
// return-visit and idle triggers have activity data to work from. The user
// is identified by the "user" query parameter; requests without one pass
// through untouched. Touch failures never fail the request.
func activityMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.Query("user"); userID != "" {
			profile.TouchActivity(db, userID)
		}
		c.Next()
	}
}
