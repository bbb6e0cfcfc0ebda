package bootstrap

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	httpHandler "github.com/Index24/live-docs/internal/handler/http"
	wsHandler "github.com/Index24/live-docs/internal/handler/websocket"
)

// Routes 汇总构建路由所需的处理器和中间件
type Routes struct {
	Auth      *httpHandler.AuthHandler
	Documents *httpHandler.DocumentHandler
	Inbox     *httpHandler.InboxHandler
	WebSocket *wsHandler.WebSocketHandler

	RequireAuth  gin.HandlerFunc
	AuthLimit    gin.HandlerFunc // 登录注册限流，可以为 nil
	ShareLimit   gin.HandlerFunc // 分享限流，可以为 nil
	AllowOrigins []string
}

// NewRouter 创建 Gin Engine 并注册全部路由
func NewRouter(log *logrus.Logger, r Routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(r.AllowOrigins) == 0 || (len(r.AllowOrigins) == 1 && r.AllowOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = r.AllowOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	if r.AuthLimit != nil {
		authRoutes.Use(r.AuthLimit)
	}
	{
		authRoutes.POST("/register", r.Auth.Register)
		authRoutes.POST("/login", r.Auth.Login)
	}

	protected := api.Group("", r.RequireAuth)
	{
		protected.GET("/me", r.Auth.Me)
		protected.GET("/access-types", r.Documents.AccessTypes)

		protected.POST("/documents", r.Documents.CreateDocument)
		protected.GET("/documents", r.Documents.ListDocuments)
		protected.GET("/documents/:roomId", r.Documents.GetDocument)
		protected.PATCH("/documents/:roomId", r.Documents.UpdateTitle)
		protected.DELETE("/documents/:roomId", r.Documents.DeleteDocument)
		share := []gin.HandlerFunc{r.Documents.ShareDocument}
		if r.ShareLimit != nil {
			share = append([]gin.HandlerFunc{r.ShareLimit}, share...)
		}
		protected.POST("/documents/:roomId/access", share...)
		protected.DELETE("/documents/:roomId/collaborators/:email", r.Documents.RemoveCollaborator)

		protected.GET("/inbox", r.Inbox.List)
		protected.POST("/inbox/:id/read", r.Inbox.MarkRead)
	}

	router.GET("/ws/revalidate", r.RequireAuth, r.WebSocket.HandleConnection)
	return router
}

// LoggerMiddleware 创建一个 Gin 中间件用于记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		// 不记录 query，token 可能出现在其中
		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
			return
		}
		switch {
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
