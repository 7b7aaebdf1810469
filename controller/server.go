package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// NewEngine returns the gin engine with all routes installed.
func NewEngine(c *Controller) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(c.log))
	SetupRoutes(r, c)
	return r
}

// Run serves until ctx is done and then shuts the server down.
func Run(ctx context.Context, c *Controller) error {
	srv := &http.Server{
		Addr:    c.cfg.Addr(),
		Handler: NewEngine(c),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	c.log.Info().Str("addr", srv.Addr).Msg("started")

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown; they end
	// when the registry closes the underlying connections.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		started := time.Now()
		ctx.Next()

		log.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.FullPath()).
			Int("status", ctx.Writer.Status()).
			Dur("took", time.Since(started)).
			Msg("request")
	}
}
