package api

import (
	"context"
	"net/http"
	"time"

	"rental-service/internal/models"
	"rental-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Pinger is a dependency the readiness check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the services the HTTP layer delegates to
type Services struct {
	Customers    *service.CustomerService
	Genres       *service.GenreService
	Medias       *service.MediaService
	Units        *service.UnitService
	Negotiations *service.NegotiationService
	Search       *service.SearchService
}

// Options configures the router
type Options struct {
	// BasePath prefixes every resource route. Empty means root.
	BasePath string
	// DefaultLimit is the page size when a list request names none.
	DefaultLimit int
	// RateLimitRPS enables the process wide rate limiter when positive.
	RateLimitRPS   float64
	RateLimitBurst int
	// Dependencies probed by /ready, keyed by name.
	Dependencies map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	services Services
	opts     Options
	limiter  *rate.Limiter
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, opts Options) *Handler {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultLimit
	}

	h := &Handler{
		services: services,
		opts:     opts,
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) error {
	if err := registerValidators(); err != nil {
		return err
	}

	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(prometheusMiddleware())
	if h.limiter != nil {
		router.Use(rateLimit(h.limiter))
	}
	router.Use(ErrorHandler())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes := router.Group(h.opts.BasePath)
	{
		registerCrud[models.Customer, service.CustomerInput](routes.Group("/customers"), h.services.Customers, h.opts.DefaultLimit)
		registerCrud[models.Genre, service.GenreInput](routes.Group("/genres"), h.services.Genres, h.opts.DefaultLimit)
		registerCrud[models.Media, service.MediaInput](routes.Group("/medias"), h.services.Medias, h.opts.DefaultLimit)

		units := routes.Group("/medias/:id/units")
		units.GET("", h.listUnits)
		units.POST("", h.createUnit)
		units.GET("/:unitId", h.getUnit)
		units.PUT("/:unitId", h.updateUnit)
		units.DELETE("/:unitId", h.destroyUnit)

		negotiations := routes.Group("/negotiations")
		negotiations.GET("", h.listNegotiations)
		negotiations.POST("", h.createNegotiation)
		negotiations.GET("/:id", h.getNegotiation)
		negotiations.DELETE("/:id", h.destroyNegotiation)
		negotiations.POST("/:id/deliver", h.deliverNegotiation)
		negotiations.GET("/:id/history", h.negotiationHistory)

		routes.GET("/search", h.search)
	}
	return nil
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "Running")
}

// readinessCheck probes every dependency and reports 503 when one fails
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, dep := range h.opts.Dependencies {
		if err := dep.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}
