package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aquanova-auth/internal/service"
)

// ReadinessCheck informa si las dependencias del proceso responden.
type ReadinessCheck func(ctx context.Context) error

// NewRouter configura el router de Gin con middlewares y rutas base.
// Si gatherer es nil no se expone /metrics; si ready es nil /api/health siempre responde OK.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	chatH *ChatHistoryHandler,
	sessions *service.SessionService,
	ready ReadinessCheck,
	gatherer prometheus.Gatherer,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/api/health", healthHandler(logger, ready))
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	auth := r.Group("/api/auth")
	auth.POST("/send-otp", authH.SendOTP)
	auth.POST("/verify-otp", authH.VerifyOTP)
	auth.POST("/signup", authH.Signup)
	auth.POST("/login", authH.Login)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.GET("/me", JWTAuthMiddleware(sessions), authH.Me)

	history := r.Group("/api/chat/history", JWTAuthMiddleware(sessions))
	history.GET("", chatH.List)
	history.POST("", chatH.Create)
	history.GET("/:id", chatH.Get)
	history.PUT("/:id", chatH.Update)
	history.DELETE("/:id", chatH.Delete)

	return r
}

func healthHandler(logger *zap.Logger, ready ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ERROR", "message": "Database unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "AquaNova API is running"})
	}
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
