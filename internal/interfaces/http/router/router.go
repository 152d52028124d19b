package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/sneakerflash/backend/internal/infrastructure/logger"
	"github.com/sneakerflash/backend/internal/interfaces/http/handler"
)

// Probe paths
const (
	LivePath  = "/health/live"
	ReadyPath = "/health/ready"
)

// Config configures the probe engine
type Config struct {
	ServiceName    string
	TracingEnabled bool
	// TrustedProxies is passed to gin; nil trusts no proxy
	TrustedProxies []string
}

// Handlers are the route handlers mounted on the engine. Ledger is optional.
type Handlers struct {
	System *handler.SystemHandler
	Ledger *handler.LedgerHandler
}

// NewEngine builds the worker's gin engine: recovery, optional tracing and
// access logging, then the probe and status routes.
func NewEngine(cfg Config, h Handlers, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(logger.Recovery(log))
	if cfg.TracingEnabled {
		engine.Use(otelgin.Middleware(cfg.ServiceName,
			otelgin.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != LivePath && r.URL.Path != ReadyPath
			}),
		))
	}
	engine.Use(logger.GinMiddleware(log, logger.WithQuietPaths(LivePath, ReadyPath)))

	engine.GET(LivePath, h.System.Live)
	engine.GET(ReadyPath, h.System.Ready)

	sys := engine.Group("/system")
	sys.GET("/info", h.System.GetSystemInfo)
	sys.GET("/jobs", h.System.ListJobs)
	if h.Ledger != nil {
		sys.GET("/ledger", h.Ledger.ListEntries)
		sys.GET("/ledger/sessions/:id", h.Ledger.GetSessionSummary)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return engine
}
