package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Varun5711/placeshare/internal/auth"
	"github.com/Varun5711/placeshare/internal/cache"
	"github.com/Varun5711/placeshare/internal/config"
	"github.com/Varun5711/placeshare/internal/database"
	"github.com/Varun5711/placeshare/internal/geocode"
	"github.com/Varun5711/placeshare/internal/handlers"
	"github.com/Varun5711/placeshare/internal/idgen"
	"github.com/Varun5711/placeshare/internal/images"
	"github.com/Varun5711/placeshare/internal/lock"
	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/middleware"
	"github.com/Varun5711/placeshare/internal/redis"
	"github.com/Varun5711/placeshare/internal/service"
	"github.com/Varun5711/placeshare/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	log := logger.New("places-api")
	log.SetStdLog()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager, err := database.NewDBManager(ctx, database.Config{
		PrimaryDSN:      cfg.Database.PrimaryDSN,
		ReplicaDSNs:     cfg.Database.ReplicaDSNs,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbManager.Close()

	// Redis is optional: without it the geocode cache is process-local and
	// rate limiting is off.
	var redisClient *redis.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewRedisClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Redis unavailable, continuing without it: %v", err)
			redisClient = nil
		}
	}
	defer redisClient.Close()

	err = lock.WithLock(ctx, redisClient.GetClient(), "placeshare:migrate", time.Minute, func(ctx context.Context) error {
		return database.Migrate(ctx, dbManager.Write())
	})
	if err != nil {
		log.Fatal("Failed to apply schema: %v", err)
	}

	geoCache := cache.NewMultiTierCache(cfg.Cache.L1Capacity, redisClient.GetClient(), cfg.Cache.L2TTL)
	geocoder := geocode.NewCachedGeocoder(
		geocode.NewClient(geocode.Config{
			BaseURL: cfg.Geocode.BaseURL,
			APIKey:  cfg.Geocode.APIKey,
			Timeout: cfg.Geocode.Timeout,
		}),
		geoCache,
		log.Named("geocode"),
	)

	imageStore, err := newImageStore(cfg.Images)
	if err != nil {
		log.Fatal("Failed to set up image store: %v", err)
	}

	idGen, err := idgen.NewGenerator(cfg.Snowflake.DatacenterID, cfg.Snowflake.WorkerID)
	if err != nil {
		log.Fatal("Failed to create ID generator: %v", err)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userStore := storage.NewUserStorage(dbManager, cfg.Database.QueryTimeout)
	placeStore := storage.NewPlaceStorage(dbManager, cfg.Database.QueryTimeout)

	userService := service.NewUserService(userStore, auth.NewPasswordHasher(cfg.Auth.BcryptCost), jwtManager, log.Named("users"))
	placeService := service.NewPlaceService(placeStore, userStore, geocoder, idGen, imageStore, log.Named("places"))

	var redisPinger handlers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	httpLog := log.Named("http")
	router := handlers.NewRouter(handlers.Routes{
		Users:          handlers.NewUserHandler(userService, imageStore, cfg.Images.MaxUploadBytes, httpLog),
		Places:         handlers.NewPlaceHandler(placeService, imageStore, cfg.Images.MaxUploadBytes, httpLog),
		Health:         handlers.NewHealthHandler(dbManager, redisPinger),
		Auth:           middleware.NewAuthMiddleware(jwtManager, httpLog),
		RateLimiter:    middleware.NewRateLimiter(redisClient.GetClient(), cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.TrustProxy, httpLog),
		RequestTimeout: cfg.Server.RequestTimeout,
		Log:            httpLog,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.HTTPPort,
		Handler: router,
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	listener, err := net.Listen("tcp", ":"+cfg.Server.GRPCHealthPort)
	if err != nil {
		log.Fatal("Failed to listen on :%s: %v", cfg.Server.GRPCHealthPort, err)
	}

	go func() {
		log.Info("gRPC health listening on :%s", cfg.Server.GRPCHealthPort)
		if err := grpcServer.Serve(listener); err != nil {
			log.Error("gRPC health server error: %v", err)
		}
	}()

	go func() {
		log.Info("Listening on :%s", cfg.Server.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: %v", err)
		}
	}()

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	<-ctx.Done()
	log.Info("Shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: %v", err)
	}
	grpcServer.GracefulStop()
}

func newImageStore(cfg config.ImagesConfig) (images.Store, error) {
	if cfg.Backend == "minio" {
		return images.NewMinioStore(images.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return images.NewLocalStore(cfg.Dir)
}
