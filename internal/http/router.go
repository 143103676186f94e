package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	chatH *ChatHandler,
	settingsH *SettingsHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/models", settingsH.ListModels)
	r.GET("/state", settingsH.GetState)
	r.PUT("/settings", settingsH.UpdateSettings)
	r.PUT("/credential", settingsH.SetCredential)
	r.DELETE("/credential", settingsH.ClearCredential)
	r.POST("/unload", settingsH.Unload)
	r.DELETE("/data", settingsH.ClearAll)

	chats := r.Group("/chats")
	chats.POST("", chatH.CreateChat)
	chats.POST("/:id/select", chatH.SelectChat)
	chats.PATCH("/:id", chatH.RenameChat)
	chats.DELETE("/:id", chatH.DeleteChat)
	chats.PUT("/:id/model", chatH.SetModel)
	chats.PUT("/:id/system-message", chatH.SetSystemMessage)

	r.POST("/messages", chatH.PostMessage)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
