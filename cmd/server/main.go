package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"formgate/internal/cache"
	"formgate/internal/config"
	"formgate/internal/repository"
	"formgate/internal/service"
	"formgate/internal/storage"
	"formgate/internal/transport/rest"
	"formgate/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr(),
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories
	formRepo := repository.NewFormRepo(db)
	responseRepo := repository.NewResponseRepo(db)
	if err := responseRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create response indexes:", err)
	}

	blobs, err := storage.NewGridFSStore(db)
	if err != nil {
		log.Fatal("Failed to open file store:", err)
	}

	// Initialize caches
	formCache := cache.NewFormCache(rdb, cfg.FormCacheTTL)
	locker := cache.NewResponseLock(rdb, cfg.ResponseLockTTL)
	stats := cache.NewStatsCache(rdb)

	// Initialize services
	authSvc := service.NewAuthService(cfg.OperatorUsername, cfg.OperatorPassword, cfg.JWTSecret)
	formSvc := service.NewFormService(formRepo, formCache)
	responseSvc := service.NewResponseService(responseRepo, formSvc, blobs, locker, stats)
	supervisorSvc := service.NewSupervisorService(responseRepo, formSvc, blobs, stats)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	responseSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService:       authSvc,
		FormService:       formSvc,
		ResponseService:   responseSvc,
		SupervisorService: supervisorSvc,
		WSHub:             wsHub,
		CORS:              cfg.CORS,
		MaxUploadBytes:    cfg.MaxUploadBytes,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Printf("Operator auth: username=%s", cfg.OperatorUsername)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST/GET /v1/forms")
		log.Println("  GET  /v1/forms/{formId}/lint")
		log.Println("  POST /v1/responses/start")
		log.Println("  POST /v1/responses/{token}/save")
		log.Println("  POST /v1/responses/{token}/submit")
		log.Println("  GET  /v1/supervisor/responses")
		log.Println("  WS   /v1/ws/responses/{token}")
		log.Println("  WS   /v1/ws/forms/{formId}/supervisor")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
