package server

import (
	"github.com/gin-gonic/gin"

	"internship-portal/internal/shared/config"
	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/server/middleware"
	"internship-portal/internal/shared/server/respond"
)

// RouteRegistrar attaches a feature's routes to the /api/v1 group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps are the handlers and shared services mounted by NewRouter.
type RouterDeps struct {
	Config          config.Config
	ResumeHandler   RouteRegistrar
	AnalysisHandler RouteRegistrar
	// Limiter backs the per-principal rate limits; nil uses an in-process limiter.
	Limiter middleware.Limiter
}

// Rate-limit groups. Polling an analysis is cheap and expected to be frequent;
// starting one costs a model call.
const (
	rateGroupDefault = "DEFAULT"
	rateGroupPolling = "POLLING"
	rateGroupAnalyze = "ANALYZE"
)

var defaultRateRules = map[string]middleware.RateLimitRule{
	rateGroupDefault: {Rate: 2, Burst: 20},
	rateGroupPolling: {Rate: 5, Burst: 30},
	rateGroupAnalyze: {Rate: 0.2, Burst: 5},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth([]byte(cfg.JWTSecret), cfg.Env != "production"),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        defaultRateRules,
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.Limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, gin.H{"ok": true})
	})
	api.GET("/me", meHandler)
	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/resumes/:id/analyze", "/api/v1/analysis/:id/rescan":
		return rateGroupAnalyze
	case "/api/v1/analysis/:id", "/api/v1/resumes/:id/analysis", "/api/v1/resumes/:id/analysis/latest":
		return rateGroupPolling
	default:
		return rateGroupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
