package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	authUsecase "diu-events-backend/internal/auth/usecase"
	notificationUsecase "diu-events-backend/internal/notification/usecase"
	userUsecase "diu-events-backend/internal/user/usecase"
	"diu-events-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	verifier            authUsecase.TokenVerifier
	userUsecase         userUsecase.UserUsecase
	notificationUsecase notificationUsecase.NotificationUsecase
	config              *config.Config
	log                 *zap.Logger
	server              *http.Server
}

func NewHandler(verifier authUsecase.TokenVerifier, userUc userUsecase.UserUsecase, notificationUc notificationUsecase.NotificationUsecase, cfg *config.Config, log *zap.Logger) *Handler {
	// Initialize runtime config for settings API
	InitRuntimeConfig(cfg.TokenMaxAge)

	h := &Handler{
		verifier:            verifier,
		userUsecase:         userUc,
		notificationUsecase: notificationUc,
		config:              cfg,
		log:                 log,
	}
	h.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Router builds the gin engine with middleware and routes.
func (h *Handler) Router() *gin.Engine {
	if h.config.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Firebase-AppCheck")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.verifier, h.userUsecase, h.notificationUsecase)
	return r
}

// Start serves HTTP on the configured port until Shutdown is called.
// Shutdown may run before or during Start.
func (h *Handler) Start() error {
	h.log.Info("server starting", zap.String("addr", h.server.Addr))
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/api/health" {
			return
		}
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
