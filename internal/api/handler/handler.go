package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"traderadar/backend/internal/config"
	"traderadar/backend/internal/localization"
	"traderadar/backend/internal/storage"
)

// Options are the tunables of the HTTP API.
type Options struct {
	JWTSecret          string
	TokenTTL           time.Duration
	NearbyRadiusMeters float64
	CallTimeout        time.Duration
}

// Handler містить посилання на Storage та спільні залежності API
type Handler struct {
	Storage   storage.Storage
	Localizer *localization.Localizer
	Logger    *zap.Logger

	secret       []byte
	tokenTTL     time.Duration
	nearbyRadius float64
	callTimeout  time.Duration
	sends        *sendLimiter
}

func NewHandler(store storage.Storage, loc *localization.Localizer, logger *zap.Logger, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 72 * time.Hour
	}
	if opts.NearbyRadiusMeters <= 0 {
		opts.NearbyRadiusMeters = config.DefaultNearbyRadiusMeters
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = config.DefaultCallTimeout
	}
	return &Handler{
		Storage:      store,
		Localizer:    loc,
		Logger:       logger,
		secret:       []byte(opts.JWTSecret),
		tokenTTL:     opts.TokenTTL,
		nearbyRadius: opts.NearbyRadiusMeters,
		callTimeout:  opts.CallTimeout,
		sends:        newSendLimiter(config.SendRateLimit, config.SendBurst),
	}
}

// Router wires middleware and routes onto a new gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(h.requestLogger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/auth/token", h.CreateUser)

	api := r.Group("/", h.AuthRequired())
	api.GET("/lists/:kind", h.GetList)
	api.POST("/lists/:kind", h.AddListEntry)
	api.DELETE("/lists/:kind", h.RemoveEntries)
	api.GET("/users/:id/lists/:kind", h.GetUserList)

	api.PUT("/location", h.SetLocation)
	api.GET("/location", h.GetLocation)
	api.POST("/scan", h.StartScanning)
	api.DELETE("/scan", h.StopScanning)
	api.GET("/nearby", h.Nearby)
	api.GET("/matches", h.Matches)

	api.GET("/sessions", h.ListSessions)
	api.POST("/sessions", h.OpenSession)
	api.GET("/sessions/:id/messages", h.PollMessages)
	api.POST("/sessions/:id/messages", h.SendMessage)
	api.POST("/sessions/:id/complete", h.CompleteSession)
	api.POST("/sessions/:id/cancel", h.CancelSession)

	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.Logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("user_id", c.GetString(userIDKey)),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
