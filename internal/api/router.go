package api

import (
	"github.com/avolkhin/billing-ledger/internal/api/handler"
	"github.com/avolkhin/billing-ledger/internal/api/middleware"
	"github.com/avolkhin/billing-ledger/internal/api/spec"
	"github.com/avolkhin/billing-ledger/internal/config"
	"github.com/avolkhin/billing-ledger/internal/idempotency"
	"github.com/avolkhin/billing-ledger/internal/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	redis     redis.Cmdable
	idemStore *idempotency.Store
	validator *ledger.Validator
	processor *ledger.Processor
	lister    handler.TransactionLister
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	redisClient redis.Cmdable,
	idemStore *idempotency.Store,
	validator *ledger.Validator,
	processor *ledger.Processor,
	lister handler.TransactionLister,
) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		idemStore: idemStore,
		validator: validator,
		processor: processor,
		lister:    lister,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	txHandler := handler.NewTransactionHandler(api.validator, api.processor, api.lister, api.logger)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	r.Route("/api/transactions", func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Use(middleware.IdempotencyMiddleware(api.idemStore, api.logger))

		r.Post("/conversion", txHandler.Conversion)
		r.Post("/service-spend", txHandler.ServiceSpend)
		r.Post("/account-topup", txHandler.AccountTopUp)
		r.Get("/", txHandler.List)
	})

	return r
}
