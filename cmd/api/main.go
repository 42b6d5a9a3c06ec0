package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-batchform-api/internal/application/dispatch"
	"github.com/go-batchform-api/internal/config"
	"github.com/go-batchform-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-batchform-api/internal/infrastructure/jwt"
	s3infra "github.com/go-batchform-api/internal/infrastructure/s3"
	"github.com/go-batchform-api/internal/infrastructure/smtp"
	"github.com/go-batchform-api/internal/infrastructure/sns"
	transporthttp "github.com/go-batchform-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 avatar store.
	s3Client := s3infra.NewClient(cfg)
	avatarStore := s3infra.NewAvatarStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS job publisher (optional — without a topic, email goes out over SMTP).
	var publisher sns.JobPublisher
	if pub, err := sns.NewPublisher(cfg); err == nil {
		publisher = pub
	} else {
		log.Printf("WARN: SNS publisher not available: %v", err)
	}

	dispatcher := dispatch.New(publisher, mailer, cfg.DispatchQueueSize)
	defer dispatcher.Close()

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		TokenRepo:        dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.ActivationTokens),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		BlacklistRepo:    dynamo.NewBlacklistRepo(dynamoClient, cfg.DynamoTables.TokenBlacklist),
		BatchRepo:        dynamo.NewBatchRepo(dynamoClient, cfg.DynamoTables.BatchForms),
		AvatarStore:      avatarStore,
		Dispatcher:       dispatcher,
		JWTProvider:      jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
