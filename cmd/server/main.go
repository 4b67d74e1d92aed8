// Package main is the entry point for the risk service.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"orus-risk/internal/circuitbreaker"
	"orus-risk/internal/config"
	"orus-risk/internal/handlers"
	"orus-risk/internal/logging"
	"orus-risk/internal/repositories"
	"orus-risk/internal/routes"
	"orus-risk/internal/services/risk"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const version = "1.0.0"

// main initializes and starts the HTTP server.
// It performs the following setup:
// - Loads configuration
// - Initializes database and Redis connections
// - Wires the risk engine
// - Configures routes
// - Starts the HTTP server and drains the audit queue on shutdown
func main() {
	config.LoadEnv()

	appLogger := logging.New(config.GetEnv("LOG_LEVEL", "info"), config.GetEnv("LOG_FORMAT", "text"))
	slog.SetDefault(appLogger)

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Successfully connected to database with connection pooling")

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close database connection: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	riskConfig := risk.ConfigFromEnv()
	metrics := risk.NewPrometheusCollector(prometheus.DefaultRegisterer)

	store := signalStore(ctx)
	oracle := reputationOracle(riskConfig)
	breaker := circuitbreaker.New(
		config.GetIntEnv("RISK_ORACLE_BREAKER_THRESHOLD", circuitbreaker.DefaultThreshold),
		config.GetDurationEnv("RISK_ORACLE_BREAKER_OPEN", circuitbreaker.DefaultOpenDuration),
	)
	breaker.OnTransition(func(tr circuitbreaker.Transition) {
		appLogger.Warn("circuit breaker transition", "key", tr.Key, "from", tr.From.String(), "to", tr.To.String())
	})

	blacklistRepo := repositories.NewBlacklistRepository(repositories.DB)
	var blacklist risk.BlacklistChecker = blacklistRepo
	if list := config.GetEnv("STRIPE_RADAR_IP_LIST", ""); list != "" {
		radar := risk.NewRadarBlacklist(config.GetEnv("STRIPE_SECRET_KEY", ""), list)
		blacklist = risk.MultiBlacklist{blacklistRepo, radar}
		log.Printf("Stripe Radar value list %s enabled as blacklist source", list)
	}

	policy := risk.NewPolicyHolder(nil)
	if path := config.GetEnv("RISK_POLICY_FILE", ""); path != "" {
		startPolicyReloader(ctx, policy, path)
	}

	resolver := risk.NewIPReputationResolver(store, oracle, blacklist, breaker, riskConfig, metrics)
	velocity := risk.NewVelocityTracker(store, metrics)
	fraudChecks := repositories.NewFraudCheckRepository(repositories.DB)

	recorder, err := risk.NewFraudCheckRecorder(fraudChecks, riskConfig.Recorder, metrics)
	if err != nil {
		log.Fatalf("Failed to start fraud check recorder: %v", err)
	}

	riskService := risk.NewService(risk.Dependencies{
		Behavior: risk.NewUserBehaviorAnalyzer(
			repositories.NewTransactionRepository(repositories.DB), riskConfig.HistoryLimit),
		Transaction: risk.NewTransactionRiskAnalyzer(resolver, velocity, policy, riskConfig),
		Aggregator:  risk.NewAggregator(policy),
		Recorder:    recorder,
		Metrics:     metrics,
	}, riskConfig)

	health := handlers.NewHealthHandler(version, map[string]handlers.Pinger{
		"database": sqlDB.PingContext,
		"redis":    redisPinger(),
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  config.GetDurationEnv("HTTP_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: config.GetDurationEnv("HTTP_WRITE_TIMEOUT", 10*time.Second),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET,POST,DELETE",
		AllowCredentials: config.GetBoolEnv("CORS_ALLOW_CREDENTIALS", false),
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path} ${respHeader:X-Request-ID}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		RiskService:    riskService,
		Blacklist:      blacklistRepo,
		FraudChecks:    fraudChecks,
		Health:         health,
		Gatherer:       prometheus.DefaultGatherer,
		Logger:         appLogger,
		JWTSecret:      config.GetEnv("JWT_SECRET", "orus"),
		ScoreRateLimit: config.GetIntEnv("RISK_SCORE_RATE_LIMIT", 600),
	})

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Server shutdown: %v", err)
		}
	}()

	addr := ":" + config.GetEnv("PORT", "3000")
	if err := app.Listen(addr); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := recorder.Close(drainCtx); err != nil && !errors.Is(err, risk.ErrRecorderClosed) {
		log.Printf("⚠️ Fraud check queue not fully drained: %v", err)
	}
}

// signalStore picks Redis unless SIGNAL_STORE=memory or Redis is unreachable
// at startup, in which case counters stay node-local.
func signalStore(ctx context.Context) risk.SignalStore {
	if strings.EqualFold(config.GetEnv("SIGNAL_STORE", "redis"), "memory") || repositories.CacheService == nil {
		log.Println("Using in-memory signal store")
		return risk.NewMemorySignalStore()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := repositories.CacheService.HealthCheck(pingCtx); err != nil {
		log.Printf("⚠️ Redis unavailable (%v), using in-memory signal store", err)
		return risk.NewMemorySignalStore()
	}
	log.Println("✅ Redis signal store connected")
	return repositories.CacheService
}

func reputationOracle(c risk.Config) risk.ReputationOracle {
	if url := config.GetEnv("RISK_ORACLE_URL", ""); url != "" {
		return risk.NewHTTPOracle(url, config.GetEnv("RISK_ORACLE_API_KEY", ""), c.OracleTimeout)
	}

	countries := map[string]string{}
	for _, pair := range config.GetListEnv("RISK_COUNTRY_PREFIXES", nil) {
		cidr, cc, ok := strings.Cut(pair, "=")
		if !ok {
			log.Printf("⚠️ Ignoring malformed RISK_COUNTRY_PREFIXES entry %q", pair)
			continue
		}
		countries[cidr] = cc
	}
	oracle, err := risk.NewPrefixOracle(
		config.GetListEnv("RISK_VPN_PREFIXES", nil),
		config.GetListEnv("RISK_TOR_PREFIXES", nil),
		countries,
	)
	if err != nil {
		log.Fatalf("Invalid reputation prefixes: %v", err)
	}
	return oracle
}

func startPolicyReloader(ctx context.Context, holder *risk.PolicyHolder, path string) {
	reloader, err := risk.NewPolicyReloader(holder, path)
	if err != nil {
		log.Fatalf("Failed to watch risk policy %s: %v", path, err)
	}
	if err := reloader.Reload(); err != nil {
		log.Fatalf("Invalid risk policy %s: %v", path, err)
	}
	log.Printf("Risk policy loaded from %s", path)
	go func() {
		if err := reloader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("⚠️ Risk policy watcher stopped: %v", err)
		}
	}()
}

func redisPinger() handlers.Pinger {
	if repositories.CacheService == nil {
		return nil
	}
	return repositories.CacheService.HealthCheck
}
