package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/cert-registry/internal/config"
	"github.com/ignite/cert-registry/internal/mailer"
	"github.com/ignite/cert-registry/internal/notify"
	"github.com/ignite/cert-registry/internal/pkg/logger"
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
	if cfg.Queue.URL == "" {
		log.Fatal("SQS_QUEUE_URL is required for the notification worker")
	}
	if cfg.Mail.Sender == "" {
		log.Fatal("SES_EMAIL_IDENTITY is required for the notification worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	sender := mailer.NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.Mail.Sender, cfg.Mail.SenderName)

	var archiver *notify.ReceiptArchiver
	if cfg.Storage.ReceiptsBucket != "" {
		archiver = notify.NewReceiptArchiver(s3.NewFromConfig(awsCfg), cfg.Storage.ReceiptsBucket)
		logger.Info("delivery receipt archive enabled", "bucket", cfg.Storage.ReceiptsBucket)
	}

	dispatcher := notify.NewDispatcher(sqs.NewFromConfig(awsCfg), cfg.Queue.URL, sender, archiver, cfg.Dispatcher)
	dispatcher.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received")
	dispatcher.Stop()
	cancel()
}
