// Server runs the push registration front: HTTP intents on HTTP_ADDR, gRPC health on GRPC_ADDR
// and Prometheus metrics on METRICS_ADDR. DEVICE_PROFILE and a caller JWT key are required.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	checkindomain "device-checkin/internal/checkin/domain"
	"device-checkin/internal/checkin/facts"
	"device-checkin/internal/checkin/repository"
	checkinservice "device-checkin/internal/checkin/service"
	"device-checkin/internal/config"
	"device-checkin/internal/db"
	"device-checkin/internal/db/migrate"
	"device-checkin/internal/gcm/handler"
	"device-checkin/internal/gcm/notify"
	"device-checkin/internal/gcm/policy"
	gcmservice "device-checkin/internal/gcm/service"
	"device-checkin/internal/health"
	"device-checkin/internal/security"
	"device-checkin/internal/server"
	"device-checkin/internal/telemetry"
	telemetryotel "device-checkin/internal/telemetry/otel"
	"device-checkin/internal/transport"
)

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTELEndpoint, "device-checkin", cfg.OTELInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)
	telemetry.RegisterMetrics()

	var (
		repo   repository.Repository
		pinger health.Pinger
		sqlDB  *sql.DB
	)
	if cfg.DatabaseURL != "" {
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()
		repo = repository.NewSQLRepository(sqlDB)
		pinger = sqlDB
	} else {
		log.Println("server: DATABASE_URL not set, identity is kept in memory only")
		repo = repository.NewMemoryRepository(checkindomain.DeviceIdentity{})
	}

	if cfg.DeviceProfile == "" {
		log.Fatal("server: DEVICE_PROFILE is required")
	}
	profile, err := facts.NewFileProvider(cfg.DeviceProfile)
	if err != nil {
		log.Fatalf("device profile: %v", err)
	}

	client, err := transport.NewClient(cfg.CheckinURL, cfg.RegisterURL, cfg.Timeout())
	if err != nil {
		log.Fatalf("transport: %v", err)
	}
	checkin := checkinservice.NewService(repo, profile, client, emitter)
	registrar := gcmservice.NewService(checkin, client, emitter)

	signer, pub, err := security.LoadKeyPair(cfg.CallerJWTPrivateKey, cfg.CallerJWTPublicKey)
	if err != nil {
		log.Fatalf("caller keys: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.CallerJWTIssuer, cfg.CallerJWTAudience, cfg.CallerTTL())

	module, err := policy.LoadModule(cfg.SenderPolicyFile)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	engine, err := policy.NewEngine(ctx, module, cfg.DeniedSendersList(), cfg.DeniedPackagesList())
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	var broadcaster notify.Broadcaster = notify.LogBroadcaster{}
	if kb := notify.NewKafkaBroadcaster(cfg.KafkaBrokersList(), cfg.BroadcastKafkaTopic); kb != nil {
		broadcaster = kb
		defer kb.Close()
		log.Printf("server: broadcasting to kafka topic %s", cfg.BroadcastKafkaTopic)
	}

	front := handler.NewFront(registrar, tokens, engine, broadcaster, cfg.FrontQueueSize)
	front.Start(ctx, cfg.FrontWorkers)

	gin.SetMode(cfg.GinMode())
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	handler.NewHTTPHandler(front, checkin, cfg.Timeout()).RegisterRoutes(router)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("HTTP front listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics serve: %v", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()
	grpcSrv, healthSrv := server.NewGRPCServer()
	go health.NewChecker(pinger, engine).Run(ctx, healthSrv, healthInterval)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	healthSrv.Shutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	front.Stop()
	grpcSrv.GracefulStop()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	cancel()
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("server stopped")
}

// requestLogger logs one line per HTTP request in the process log format.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		log.Printf("http: %s %s status=%d duration=%s", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
