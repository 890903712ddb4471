package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/vendorhub/storefront/docs"
	"github.com/vendorhub/storefront/internal/api/handler"
	"github.com/vendorhub/storefront/internal/api/middleware"
	"github.com/vendorhub/storefront/internal/core/policy"
	"github.com/vendorhub/storefront/internal/core/ports"
)

// Deps is everything the router needs. Checks feeds the readiness probe and
// may be nil. Registry defaults to a fresh registry per router.
type Deps struct {
	Products  ports.ProductService
	Auth      ports.AuthService
	JWTSecret string
	Checks    map[string]handler.Pinger
	Registry  *prometheus.Registry
	Log       zerolog.Logger
}

// NewRouter builds the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "marketplace",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	productHandler := handler.NewProductHandler(d.Products)
	authHandler := handler.NewAuthHandler(d.Auth)
	healthHandler := handler.NewHealthHandler(d.Checks)
	auth := middleware.Auth(d.JWTSecret)

	e.POST("/api/auth/register", authHandler.Register)
	e.POST("/api/auth/login", authHandler.Login)

	products := e.Group("/api/products")
	products.GET("", productHandler.ListApproved)
	products.GET("/my-products", productHandler.ListMine, auth, middleware.RBAC(policy.ActionViewOwnProducts))
	products.GET("/pending", productHandler.ListPending, auth, middleware.RBAC(policy.ActionViewPendingQueue))
	products.POST("", productHandler.Submit, auth, middleware.RBAC(policy.ActionSubmitProduct))
	products.PUT("/approve/:id", productHandler.Approve, auth, middleware.RBAC(policy.ActionApproveProduct))
	products.PUT("/reject/:id", productHandler.Reject, auth, middleware.RBAC(policy.ActionRejectProduct))
	products.DELETE("/:id", productHandler.Delete, auth, middleware.RBAC(policy.ActionRejectProduct))
	products.GET("/:id/history", productHandler.History, auth, middleware.RBAC(policy.ActionViewHistory))

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Warn().Err(v.Error)
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
