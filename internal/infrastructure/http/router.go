package http

import (
	"context"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/utilityops/meter-api/docs"
	"github.com/utilityops/meter-api/internal/infrastructure/http/handlers"
)

// Operational groups what the health and scrape endpoints need.
type Operational struct {
	Checks   []handlers.DependencyCheck
	Gatherer prometheus.Gatherer
	Swagger  bool
}

// RegisterOperational mounts health checks, the Prometheus scrape endpoint and,
// when enabled, the Swagger UI. None of these routes require authentication.
func RegisterOperational(e *echo.Echo, ops Operational) {
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(ops.Checks...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	gatherer := ops.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	if ops.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}
}

// MongoCheck pings the database the repositories use.
func MongoCheck(db *mongo.Database) handlers.DependencyCheck {
	return handlers.DependencyCheck{
		Name: "mongodb",
		Check: func(ctx context.Context) error {
			return db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		},
	}
}

// RedisCheck pings the login throttle backend.
func RedisCheck(rdb *redis.Client) handlers.DependencyCheck {
	return handlers.DependencyCheck{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}
