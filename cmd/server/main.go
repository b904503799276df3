package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/seu-repo/csms-ocpp16/internal/adapter/cache"
	"github.com/seu-repo/csms-ocpp16/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/csms-ocpp16/internal/adapter/queue"
	"github.com/seu-repo/csms-ocpp16/internal/adapter/vault"
	"github.com/seu-repo/csms-ocpp16/internal/connregistry"
	"github.com/seu-repo/csms-ocpp16/internal/credential"
	"github.com/seu-repo/csms-ocpp16/internal/dispatcher"
	"github.com/seu-repo/csms-ocpp16/internal/httpapi"
	"github.com/seu-repo/csms-ocpp16/internal/observability/telemetry"
	"github.com/seu-repo/csms-ocpp16/internal/ports"
	"github.com/seu-repo/csms-ocpp16/internal/resilience"
	"github.com/seu-repo/csms-ocpp16/internal/storage/postgres"
	"github.com/seu-repo/csms-ocpp16/internal/transport"
	"github.com/seu-repo/csms-ocpp16/internal/transport/httplongpoll"
	"github.com/seu-repo/csms-ocpp16/internal/transport/mqtt"
	"github.com/seu-repo/csms-ocpp16/internal/transport/websocket"
	"github.com/seu-repo/csms-ocpp16/pkg/config"
)

const serviceName = "csms-ocpp16"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	zapLogger, err := newLogger(cfg.App.Environment)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting csms", zap.String("service", serviceName), zap.String("environment", cfg.App.Environment))

	tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry.ServiceName)
	if err != nil {
		zapLogger.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			zapLogger.Error("error shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := postgres.Open(postgres.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        logger.Warn,
	})
	if err != nil {
		zapLogger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.AutoMigrate(db); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
	}

	var hotCache ports.Cache
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		if hotCache, err = cache.NewRedisCache(cfg.Redis.URL, zapLogger); err != nil {
			zapLogger.Warn("redis not available, falling back to local cache", zap.Error(err))
			hotCache = cache.NewLocalCache(cfg.Redis.StatusTTL, zapLogger)
		}
	} else {
		hotCache = cache.NewLocalCache(cfg.Redis.StatusTTL, zapLogger)
	}
	defer hotCache.Close()

	var deviceEventBus queue.MessageQueue
	switch {
	case cfg.NATS.Enabled && cfg.NATS.URL != "":
		deviceEventBus, err = queue.NewNATSQueue(cfg.NATS.URL, zapLogger)
	case cfg.RabbitMQ.Enabled && cfg.RabbitMQ.URL != "":
		deviceEventBus, err = queue.NewRabbitMQQueue(cfg.RabbitMQ.URL, zapLogger)
	}
	if err != nil {
		zapLogger.Warn("message queue not available, device events stay postgres-only", zap.Error(err))
		deviceEventBus = nil
	}
	if deviceEventBus != nil {
		defer deviceEventBus.Close()
	}

	siteRepo := postgres.NewSiteRepository(db)
	chargePointRepo := postgres.NewChargePointRepository(db)
	evseRepo := postgres.NewEVSERepository(db)
	var evseStatusRepo ports.EVSEStatusRepository = postgres.NewCachedEVSEStatusRepository(
		postgres.NewEVSEStatusRepository(db), hotCache, cfg.Redis.StatusTTL, zapLogger)
	deviceRepo := postgres.NewDeviceRepository(db)
	sessionRepo := postgres.NewChargingSessionRepository(db)
	tariffRepo := postgres.NewTariffRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	var eventRepo ports.DeviceEventRepository = postgres.NewDeviceEventRepository(db)
	if deviceEventBus != nil {
		eventRepo = queue.NewEventBusRepository(eventRepo, deviceEventBus, zapLogger)
	}

	encryptionKey, encryptionSalt := cfg.Encryption.Key, cfg.Encryption.Salt
	if cfg.Vault.Enabled {
		secretManager, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
		if err != nil {
			zapLogger.Fatal("failed to construct vault client", zap.Error(err))
		}
		if encryptionKey, err = secretManager.GetEncryptionKey(); err != nil {
			zapLogger.Fatal("failed to fetch encryption key from vault", zap.Error(err))
		}
		if encryptionSalt, err = secretManager.GetEncryptionSalt(); err != nil {
			zapLogger.Fatal("failed to fetch encryption salt from vault", zap.Error(err))
		}
	}
	engine := credential.New(encryptionKey, encryptionSalt)
	authenticator := credential.NewAuthenticator(engine, deviceRepo)

	dispatch := dispatcher.New(chargePointRepo, evseRepo, evseStatusRepo, sessionRepo, tariffRepo, orderRepo, eventRepo, nil, zapLogger)

	connRegistry := connregistry.New()
	pendingRegistry := transport.NewRegistry(zapLogger)
	outboundGuard := resilience.NewOutboundGuard(zapLogger)
	manager := transport.NewManager(zapLogger).WithOutboundGuard(outboundGuard)

	onSeen := func(transportName string) func(string) {
		return func(chargerID string) { connRegistry.Connect(chargerID, transportName) }
	}

	var httpAdapter *httplongpoll.Adapter
	if cfg.OCPP.HTTP.Enabled {
		httpAdapter = httplongpoll.NewAdapter(pendingRegistry, dispatch.Handle, onSeen(transport.NameHTTP), zapLogger)
		httpAdapter.WithAuthenticator(authenticator)
		manager.Register(httpAdapter)
	}

	if cfg.OCPP.WebSocket.Enabled {
		wsAdapter := websocket.NewAdapter(cfg.OCPP.WebSocket.Addr, pendingRegistry, dispatch.Handle,
			onSeen(transport.NameWebSocket),
			func(chargerID string) { connRegistry.Disconnect(chargerID, transport.NameWebSocket) },
			zapLogger)
		wsAdapter.WithAuthenticator(authenticator)
		manager.Register(wsAdapter)
		if err := wsAdapter.Start(context.Background()); err != nil {
			zapLogger.Fatal("failed to start websocket adapter", zap.Error(err))
		}
	}

	if cfg.OCPP.MQTT.Enabled {
		mqttAdapter := mqtt.NewAdapter(cfg.OCPP.MQTT.BrokerURL, pendingRegistry, dispatch.Handle, onSeen(transport.NameMQTT), zapLogger)
		manager.Register(mqttAdapter)
		if err := mqttAdapter.Start(context.Background()); err != nil {
			zapLogger.Fatal("failed to start mqtt adapter", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(zapLogger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		app.Use(middleware.NewCORS(cfg.CORS))
	} else {
		app.Use(fibercors.New())
	}
	app.Use(middleware.CircuitBreakerWithLogger(zapLogger))

	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendString("OK") })
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("database not ready")
		}
		return c.SendString("ready")
	})

	if cfg.Prometheus.Enabled {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	httpapi.NewHandler(manager, zapLogger).Register(app.Group("/api/v1/ocpp"))
	httpapi.NewSiteHandler(siteRepo, zapLogger).Register(app.Group("/api/v1/sites"))

	if httpAdapter != nil {
		app.Post("/ocpp/:chargerId", httpAdapter.HandlePost)
		app.Get("/ocpp/:chargerId", httpAdapter.HandleGet)
	}

	stopMetricsTicker := startMetricsTicker(pendingRegistry, connRegistry, outboundGuard)
	defer stopMetricsTicker()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
		zapLogger.Info("starting http server", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		zapLogger.Error("fiber shutdown error", zap.Error(err))
	}
	if err := manager.StopAll(ctx); err != nil {
		zapLogger.Error("transport shutdown error", zap.Error(err))
	}

	zapLogger.Info("shutdown complete")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// breakerStateValue renders a resilience.BreakerStatus.State string as the
// small int telemetry.SetCircuitBreakerState's gauge expects, matching
// resilience.State's own iota order (closed=0, half-open=1, open=2).
func breakerStateValue(state string) int {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// startMetricsTicker polls the connectivity/pending/breaker state onto the
// Prometheus gauges every five seconds, since none of those sources push
// on change.
func startMetricsTicker(pending *transport.Registry, conns *connregistry.Registry, guard *resilience.OutboundGuard) func() {
	ticker := time.NewTicker(5 * time.Second)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				telemetry.SetConnectivityGauges(conns.ConnectedCount(), pending.Size())
				for key, status := range guard.Status() {
					telemetry.SetCircuitBreakerState(key, breakerStateValue(status.State))
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}
