package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seekweb/pos-api/internal/app"
	"github.com/seekweb/pos-api/internal/auth"
	"github.com/seekweb/pos-api/internal/cart"
	"github.com/seekweb/pos-api/internal/catalog"
	"github.com/seekweb/pos-api/internal/checkout"
	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/config"
	"github.com/seekweb/pos-api/internal/customer"
	"github.com/seekweb/pos-api/internal/events"
	"github.com/seekweb/pos-api/internal/health"
	"github.com/seekweb/pos-api/internal/obs"
	"github.com/seekweb/pos-api/internal/payment"
	"github.com/seekweb/pos-api/internal/queue"
	"github.com/seekweb/pos-api/internal/ratelimit"
	"github.com/seekweb/pos-api/internal/receipt"
	"github.com/seekweb/pos-api/internal/report"
	"github.com/seekweb/pos-api/internal/sale"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "pos-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "pos-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := app.NewValidator()

	catalogStore := catalog.PostgresStore{Pool: pool}
	catalogService := catalog.NewService(catalog.ServiceConfig{
		Store:        catalogStore,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	catalogHandler := catalog.NewHandler(catalogService)

	customerStore := customer.Store{Pool: pool}
	customerHandler := customer.NewHandler(customerStore, validate)

	authService, err := auth.NewService(auth.ServiceConfig{
		Store:     auth.OperatorStore{Pool: pool},
		Secret:    cfg.JWTSecret,
		AccessTTL: cfg.AccessTokenTTL,
		Issuer:    "pos-api",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}
	authHandler := auth.NewHandler(authService)
	authMiddleware := auth.Middleware{Service: authService}

	cartService := &cart.Service{
		Sessions:  cart.NewSessionStore(redisClient, cfg.CartTTL),
		Products:  catalogService,
		Customers: customerStore,
	}
	cartHandler := cart.NewHandler(cartService)

	methods := payment.NewMethods(payment.MethodStore{Pool: pool}, redisClient, cfg.CatalogCacheTTL, cfg.CashMethodCode)
	paymentService := &payment.Service{
		Sessions: payment.NewSessionStore(redisClient, cfg.CartTTL),
		Methods:  methods,
	}
	paymentHandler := payment.NewHandler(paymentService)

	saleStore := sale.PostgresStore{Pool: pool}
	committer := &sale.Committer{
		Store:   saleStore,
		Stock:   catalogStore,
		Numbers: &sale.NumberGenerator{},
		Log:     logger,
	}
	saleHandler := sale.NewHandler(saleStore)

	bus := &events.Bus{Store: events.PostgresStore{Pool: pool}}
	enqueuer := queue.Enqueuer{R: redisClient, Prefix: cfg.QueueRedisPrefix, DedupTTL: cfg.IdempotencyTTL, MaxAttempts: cfg.QueueMaxAttempts}

	checkoutService := &checkout.Service{
		Carts:           cartService,
		Payments:        paymentService,
		Committer:       committer,
		Customers:       customerStore,
		Events:          bus,
		Tasks:           enqueuer,
		ReceiptTaskKind: cfg.ReceiptTaskKind,
		Log:             logger,
	}
	checkoutHandler := checkout.NewHandler(checkoutService)

	receiptService := &receipt.Service{
		Sales:    saleStore,
		Renderer: receipt.Renderer{StoreName: cfg.StoreName, Currency: cfg.CurrencyCode, TaxInclusive: cfg.TaxInclusiveDisplay},
		Client:   redisClient,
		Log:      logger,
	}
	receiptHandler := receipt.NewHandler(receiptService)

	reportService := &report.Service{
		Q:           report.PostgresQuerier{Pool: pool},
		R:           redisClient,
		TTL:         cfg.ReportCacheTTL,
		DefaultDays: cfg.ReportDefaultDays,
	}
	reportHandler := report.NewHandler(reportService)

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	checkoutLimiter := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:checkout:"},
		Config: ratelimit.Config{
			Key: func(r *http.Request) string {
				return "register:" + strings.TrimSpace(r.Header.Get(auth.RegisterHeader))
			},
			Window: cfg.CheckoutRateWindow,
			Max:    cfg.CheckoutRateMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("checkout rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", auth.RegisterHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", true) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.Deps{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		authHandler.Routes(v)

		v.Group(func(op chi.Router) {
			op.Use(authMiddleware.RequireOperator)
			authHandler.MeRoutes(op)
			catalogHandler.Routes(op)
			customerHandler.Routes(op)
			saleHandler.Routes(op)
			receiptHandler.Routes(op)

			op.Group(func(till chi.Router) {
				till.Use(auth.RequireRegister)
				cartHandler.Routes(till)
				paymentHandler.Routes(till)
				till.Group(func(co chi.Router) {
					co.Use(checkoutLimiter.Middleware)
					co.Use(idem.Middleware)
					checkoutHandler.Routes(co)
				})
			})
		})

		v.Group(func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)
			authHandler.AdminRoutes(admin)
			reportHandler.Routes(admin)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
