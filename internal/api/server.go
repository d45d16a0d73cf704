package api

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type ServerOptions struct {
	Debug bool
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64
	Logger    *slog.Logger
	Gatherer  prometheus.Gatherer
}

// NewServer builds the echo instance with middleware, /metrics and the
// handler's routes.
func NewServer(h *Handler, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Debug = opts.Debug
	e.JSONSerializer = jsonSerializer{}
	if opts.Debug {
		e.Logger.SetLevel(log.DEBUG)
	} else {
		e.Logger.SetLevel(log.INFO)
	}
	e.Server.ReadHeaderTimeout = 5 * time.Second

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(middleware.CORS())
	if opts.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(opts.RateLimit))))
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	h.RegisterRoutes(e)
	return e
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.WarnContext(c.Request().Context(), "request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	})
}
