package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/visio/internal/adapter/blob"
	"github.com/rl1809/visio/internal/adapter/handler"
	"github.com/rl1809/visio/internal/adapter/storage"
	"github.com/rl1809/visio/internal/config"
	"github.com/rl1809/visio/internal/core/service"
	"github.com/rl1809/visio/internal/obs"
	"github.com/rl1809/visio/internal/port"
	"github.com/rl1809/visio/internal/seed"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := obs.NewLogger(cfg.LogLevel)

	shutdownTelemetry, err := obs.InitTelemetry(ctx, cfg.OTLPEndpoint, cfg.ServiceName, version)
	if err != nil {
		log.Fatalf("failed to init telemetry: %v", err)
	}

	// Initialize database
	dialect, err := storage.DialectFor(cfg.DBDriver)
	if err != nil {
		log.Fatalf("failed to select database: %v", err)
	}
	repo, err := storage.OpenSQL(ctx, storage.SQLConfig{
		Dialect:         dialect,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("failed to open %s: %v", dialect.Name, err)
	}
	log.Printf("connected to %s", dialect.Name)

	// Initialize cache
	var (
		cache port.CacheRepository = storage.NewMemoryCache()
		rdb   *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: cfg.RedisPoolSize,
		})
		redisAdapter := storage.NewRedisAdapter(rdb)
		if err := redisAdapter.Ping(ctx); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		cache = redisAdapter
		log.Println("connected to redis")
	} else {
		log.Println("REDIS_ADDR not set, using in-process idempotency cache")
	}

	blobs, err := blob.Open(ctx, blob.Config{
		Driver: port.BlobDriver(cfg.BlobDriver),
		FSRoot: cfg.BlobFSRoot,
		S3: blob.S3Config{
			Bucket:    cfg.BlobS3Bucket,
			Region:    cfg.BlobS3Region,
			Endpoint:  cfg.BlobS3Endpoint,
			PathStyle: cfg.BlobS3PathStyle,
		},
	})
	if err != nil {
		log.Fatalf("failed to open blob store: %v", err)
	}
	log.Printf("report exports go to %s store", blobs.Driver())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(registry)

	// Initialize services
	opts := []service.Option{
		service.WithLocation(cfg.ReportLocation),
		service.WithLogger(logger),
		service.WithMetrics(metrics),
	}
	orderOpts := append([]service.Option{}, opts...)
	if cfg.StrictStatusTransitions {
		orderOpts = append(orderOpts, service.WithTransitionPolicy(service.StrictTransitions))
	}
	reports := service.NewReportService(repo, opts...)
	svc := handler.Services{
		Orders:  service.NewOrderService(repo, cache, orderOpts...),
		Catalog: service.NewCatalogService(repo, opts...),
		Ledger:  service.NewLedgerService(repo, opts...),
		Reports: reports,
		Exports: service.NewExportService(reports, blobs, opts...),
	}

	if cfg.SeedSampleData {
		loaded, err := seed.Load(ctx, repo, service.NewOrderNumbers(cache), time.Now())
		if err != nil {
			log.Fatalf("failed to seed sample data: %v", err)
		}
		if loaded {
			log.Println("sample data initialized")
		}
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterOrdersServer(grpcServer, handler.NewGRPCHandler(svc))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.NewHTTPHandler(svc, metrics, cfg.ReportLocation), handler.RouterConfig{
		ServiceName:    cfg.ServiceName,
		Gatherer:       registry,
		RequestTimeout: cfg.RequestTimeout,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}

	// Close connections
	if rdb != nil {
		rdb.Close()
	}
	repo.Close()
	log.Println("connections closed")
}
