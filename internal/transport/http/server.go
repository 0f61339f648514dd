package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/toyshophq/toyshop-server/internal/auth"
	"github.com/toyshophq/toyshop-server/internal/config"
	"github.com/toyshophq/toyshop-server/internal/core"
	"github.com/toyshophq/toyshop-server/internal/service/toys"
	"github.com/toyshophq/toyshop-server/internal/store"
)

// NewServer builds the HTTP server: REST API plus the websocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, toyService *toys.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	toyHandlers := NewToyHandlers(st, toyService, logger)
	wsHandler := NewWSHandler(hub, authService, toyService, cfg.WSMessageRateLimit, logger)

	authRequired := AuthMiddleware(authService, logger)
	adminRequired := AdminMiddleware(logger)

	api := router.Group("/api")
	{
		api.POST("/auth/register", apiHandlers.Register)
		api.POST("/auth/login", apiHandlers.Login)
		api.POST("/auth/guest", apiHandlers.GuestLogin)

		toy := api.Group("/toy")
		{
			toy.GET("", toyHandlers.ListToys)
			toy.GET("/:id", toyHandlers.GetToy)
			toy.POST("", authRequired, adminRequired, toyHandlers.AddToy)
			toy.PUT("/:id", authRequired, adminRequired, toyHandlers.UpdateToy)
			toy.DELETE("/:id", authRequired, adminRequired, toyHandlers.RemoveToy)

			toy.POST("/:id/msg", authRequired, toyHandlers.AddToyMsg)
			toy.DELETE("/:id/msg/:msgId", authRequired, toyHandlers.RemoveToyMsg)
		}
	}

	router.GET("/ws", func(c *gin.Context) {
		wsHandler.ServeHTTP(c.Writer, c.Request)
	})

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
