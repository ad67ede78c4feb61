package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/core"
)

// NewServer builds the HTTP server: health probe, WebSocket endpoint and
// the read-only roster API.
func NewServer(hub *core.Hub, registry *core.Registry, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, registry, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires the gin engine used by NewServer.
func NewRouter(hub *core.Hub, registry *core.Registry, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))

	roomHandlers := NewRoomHandlers(registry, logger)
	api := router.Group("/api")
	api.GET("/rooms/:room/roster", roomHandlers.Roster)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
