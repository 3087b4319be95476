//	@title			Simple CMS API
//	@version		1.0
//	@description	Customer and user management backend with photo storage.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simplecms/api/internal/api"
	"github.com/simplecms/api/internal/auth"
	"github.com/simplecms/api/internal/config"
	"github.com/simplecms/api/internal/customer"
	"github.com/simplecms/api/internal/db"
	"github.com/simplecms/api/internal/storage"
	"github.com/simplecms/api/internal/upload"
	"github.com/simplecms/api/internal/user"

	_ "github.com/simplecms/api/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	policy := upload.NewPolicy(cfg.AcceptedPhotoFormats, cfg.MaxPhotoUploadSize)

	// Wire dependencies: repository → service → handler
	userRepo := user.NewPostgresRepository(pool)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	customerRepo := customer.NewPostgresRepository(pool)
	customerSvc := customer.NewService(customerRepo, store, policy)
	customerHandler := customer.NewHandler(customerSvc)

	authSvc := auth.NewService(userSvc, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc)

	if err := userSvc.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
		log.Fatalf("admin bootstrap failed: %v", err)
	}

	r := api.NewRouter(api.Deps{
		JWTSecret: cfg.JWTSecret,
		Auth:      authHandler,
		Users:     userHandler,
		Customers: customerHandler,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
