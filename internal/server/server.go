// Package server exposes the delivery engine over HTTP: the SSE push stream,
// the inbox API, direct trigger firing, and admin sends.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/herald/internal/broadcast"
	"github.com/zulandar/herald/internal/config"
	"github.com/zulandar/herald/internal/scanner"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	DB          *gorm.DB
	Config      *config.Config
	Broadcaster *broadcast.Broadcaster
	Scanner     *scanner.Scanner
	Out         io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Config == nil {
		return fmt.Errorf("server: config is required")
	}
	if opts.Broadcaster == nil {
		return fmt.Errorf("server: broadcaster is required")
	}
	if opts.Scanner == nil {
		return fmt.Errorf("server: scanner is required")
	}

	router := NewRouter(opts)

	addr := fmt.Sprintf(":%d", opts.Config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Herald API listening on %s\n", addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes and middleware attached.
// Split out from Start so tests can drive it with httptest.
func NewRouter(opts StartOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(rateLimitMiddleware(opts.DB, opts.Config))
	router.Use(activityMiddleware(opts.DB))

	registerRoutes(router, opts)
	return router
}
