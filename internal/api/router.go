package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/api/handler"
	"github.com/utilityops/meter-api/internal/api/middleware"
	"github.com/utilityops/meter-api/internal/core/policy"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// Services groups the use cases the HTTP layer exposes.
type Services struct {
	Auth      ports.AuthService
	Users     ports.UserService
	Locations ports.LocationService
	Meters    ports.MeterService
	Readings  handler.ReadingDispatcher
}

// Options tunes the ambient behaviour of the router.
type Options struct {
	Log zerolog.Logger
	// Registerer receives the HTTP request metrics. Defaults to the global
	// Prometheus registerer.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all API routes registered.
func NewRouter(svc Services, opts Options) *echo.Echo {
	log := opts.Log
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:                 "meter_api",
		Subsystem:                 "http",
		Registerer:                reg,
		DoNotUseRequestPathFor404: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	authHandler := handler.NewAuthHandler(svc.Auth)
	userHandler := handler.NewUserHandler(svc.Users)
	locationHandler := handler.NewLocationHandler(svc.Locations)
	meterHandler := handler.NewMeterHandler(svc.Meters)
	readingHandler := handler.NewReadingHandler(svc.Readings)

	v1 := e.Group("/v1")

	// --- Auth routes (public) ---
	v1.POST("/auth/token", authHandler.Token)

	protected := v1.Group("", middleware.Auth(svc.Auth))

	// --- Users ---
	protected.GET("/users/me", userHandler.Me)
	protected.GET("/users", userHandler.List)
	protected.POST("/users", userHandler.Create)
	protected.GET("/users/:id", userHandler.Get)
	protected.PATCH("/users/:id", userHandler.Update)
	protected.DELETE("/users/:id", userHandler.Delete)

	// --- Locations ---
	protected.GET("/locations", locationHandler.List)
	protected.POST("/locations", locationHandler.Create)
	protected.GET("/locations/:id", locationHandler.Get)
	protected.PATCH("/locations/:id", locationHandler.Update)
	protected.DELETE("/locations/:id", locationHandler.Delete)

	// --- Meters ---
	protected.GET("/meters", meterHandler.List)
	protected.POST("/meters", meterHandler.Create)
	protected.POST("/meters/readings/batch", readingHandler.ReceiveBatch, middleware.Authorize(policy.UpdateMeter))
	protected.GET("/meters/:ean", meterHandler.Get)
	protected.PATCH("/meters/:ean", meterHandler.Update)
	protected.DELETE("/meters/:ean", meterHandler.Delete)
	protected.GET("/meters/:ean/readings", meterHandler.History)

	return e
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
