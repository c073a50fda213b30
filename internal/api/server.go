// Package api wires the gateway's HTTP surface: authentication, body-limit
// enforcement, and the four client-facing endpoints, on top of the dispatch
// loop that does the actual routing and translation work.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexusgate/aigateway/internal/config"
	"github.com/nexusgate/aigateway/internal/dispatch"
	"github.com/nexusgate/aigateway/internal/logging"
	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
	sdkaccess "github.com/nexusgate/aigateway/sdk/access"
)

// Server is the gateway's HTTP server: a gin engine plus the shared state
// its handlers close over.
type Server struct {
	engine *gin.Engine
	server *http.Server
	cfg    func() *config.Config
}

// NewServer builds the gin engine, registers middleware and routes, and
// returns a Server ready for Start.
func NewServer(cfgFn func() *config.Config, pool *coreauth.Pool, dispatcher *dispatch.Dispatcher, accessManager *sdkaccess.Manager) *Server {
	cfg := cfgFn()
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(logging.GinLogrusLogger())
	engine.Use(logging.GinLogrusRecovery())
	engine.Use(corsMiddleware())
	engine.Use(BodyLimit(cfg.BodyLimitMB))

	h := &handler{pool: pool, dispatcher: dispatcher, cfg: cfgFn}

	v1 := engine.Group("/v1")
	v1.Use(AuthMiddleware(accessManager))
	{
		v1.GET("/models", h.models)
		v1.POST("/chat/completions", h.chatCompletions)
		v1.POST("/messages", h.messages)
		v1.POST("/responses", h.responses)
	}

	s := &Server{
		engine: engine,
		cfg:    cfgFn,
		server: &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: engine},
	}
	return s
}

// Start listens and serves until the server is stopped; it blocks.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
