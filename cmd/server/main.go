package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/cert-registry/internal/api"
	"github.com/ignite/cert-registry/internal/certificate"
	"github.com/ignite/cert-registry/internal/config"
	"github.com/ignite/cert-registry/internal/notify"
	"github.com/ignite/cert-registry/internal/pkg/logger"
	"github.com/ignite/cert-registry/internal/registration"
	"github.com/ignite/cert-registry/internal/storage"
)

func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	} else if profile := cfg.GetProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	identityStore := storage.NewDynamoIdentityStore(dynamoClient, cfg.Storage.IdentitiesTable, cfg.Storage.IdentityIDIndex)
	certStore := storage.NewDynamoCertificateStore(dynamoClient, cfg.Storage.CertificatesTable)

	// Notification publisher (optional: no queue URL means notifications
	// are skipped entirely, never that requests fail)
	var publisher *notify.Publisher
	if cfg.Queue.URL != "" {
		publisher = notify.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Queue.URL)
		logger.Info("notification publisher enabled", "queue", cfg.Queue.URL)
	} else {
		logger.Warn("no queue configured, notifications disabled")
	}

	// Optional Redis cache in front of identity lookups
	var resolver certificate.IdentityResolver = identityStore
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, identity cache disabled", "error", err)
		} else {
			resolver = certificate.NewCache(redisClient, identityStore, cfg.Redis.TTL())
			logger.Info("identity cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	var regNotifier registration.Notifier
	var certNotifier certificate.Notifier
	if publisher != nil {
		regNotifier = publisher
		certNotifier = publisher
	}

	registrations := registration.NewService(identityStore, regNotifier)
	certificates := certificate.NewService(certStore, resolver, certNotifier)

	server := api.NewServer(cfg.Server, api.NewHandlers(registrations, certificates))

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
		cancel()
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	logger.Info("server stopped")
}
