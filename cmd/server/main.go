package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/thunderlink/backend/internal/cache"
	"github.com/anonto42/thunderlink/backend/internal/events"
	"github.com/anonto42/thunderlink/backend/internal/handlers"
	"github.com/anonto42/thunderlink/backend/internal/middleware"
	"github.com/anonto42/thunderlink/backend/internal/ratelimit"
	"github.com/anonto42/thunderlink/backend/internal/repositories"
	"github.com/anonto42/thunderlink/backend/internal/router"
	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/anonto42/thunderlink/backend/internal/storage"
	"github.com/anonto42/thunderlink/backend/pkg/config"
	"github.com/anonto42/thunderlink/backend/pkg/firebase"
	"github.com/anonto42/thunderlink/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	store, err := openStore(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to prepare store: %v", err)
	}

	health := map[string]handlers.Pinger{"store": store}

	// Redis backs the listing cache and the rate limiter
	var listing services.PostListing
	var limiter services.Limiter
	redisClient, err := config.InitRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		listing = cache.NewPostListCache(redisClient, cfg.ListingCacheKey)
		limiter = ratelimit.NewLimiter(redisClient, map[ratelimit.Action]time.Duration{
			ratelimit.ActionPost:    cfg.PostRateLimitTTL,
			ratelimit.ActionComment: cfg.CommentRateLimitTTL,
		})
		health["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	var publisher events.Publisher = events.NopPublisher{}
	natsConn, err := config.InitNATS(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize NATS: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
		publisher = events.NewNatsPublisher(natsConn)
	}

	// Firebase supplies ID token verification and the upload bucket
	var uploader storage.Uploader = storage.NopUploader{}
	var firebaseApp *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		if firebaseApp.Bucket != nil {
			uploader = storage.NewBucketUploader(firebaseApp.Bucket, cfg.UploadURLExpiry)
		}
	}

	var auth echo.MiddlewareFunc
	switch cfg.AuthProvider {
	case "firebase":
		auth = middleware.FirebaseAuth(firebaseApp.AuthClient)
	default:
		auth = middleware.JWTAuth(cfg.JWTSecret)
	}

	service := services.NewContentService(store, listing, limiter, publisher, uploader)
	service.DeleteRetries = cfg.DeleteRetries

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Validator
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, router.Dependencies{
		Service:           service,
		Auth:              auth,
		AllowedImageTypes: cfg.AllowedImageTypes,
		Health:            health,
	})

	// Start server
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	log.Println("Server stopped.")
}

// openStore wraps the configured connection in a Store and prepares its schema
func openStore(ctx context.Context, cfg *config.Config, db *config.DB) (repositories.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		store := repositories.NewPostgresStore(db.Postgres)
		if err := store.Migrate(); err != nil {
			return nil, err
		}
		log.Println("PostgreSQL auto-migrations completed.")
		return store, nil
	case "mongo":
		store := repositories.NewMongoStore(db.Mongo, db.Mongo.Database(cfg.MongoDatabase))
		indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := store.EnsureIndexes(indexCtx); err != nil {
			return nil, err
		}
		log.Println("MongoDB indexes ensured.")
		return store, nil
	default:
		log.Println("Using in-memory store; data is lost on restart.")
		return repositories.NewMemoryStore(), nil
	}
}
