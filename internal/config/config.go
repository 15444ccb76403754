package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	AWS        AWSConfig        `yaml:"aws"`
	Storage    StorageConfig    `yaml:"storage"`
	Queue      QueueConfig      `yaml:"queue"`
	Mail       MailConfig       `yaml:"mail"`
	Redis      RedisConfig      `yaml:"redis"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns the listen address in host:port form
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// AWSConfig holds shared AWS client configuration. When AccessKey and
// SecretKey are empty the default credential chain is used (IAM role on
// ECS/Lambda).
type AWSConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Profile   string `yaml:"profile"`
}

// GetProfile returns the AWS profile, with environment variable override
func (c AWSConfig) GetProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "" // Running on ECS or Lambda, use IAM role
	}
	return c.Profile
}

// StorageConfig holds DynamoDB table configuration for the identity and
// certificate stores, plus the optional S3 bucket for delivery receipts.
type StorageConfig struct {
	IdentitiesTable   string `yaml:"identities_table"`
	CertificatesTable string `yaml:"certificates_table"`
	IdentityIDIndex   string `yaml:"identity_id_index"`
	ReceiptsBucket    string `yaml:"receipts_bucket"`
}

// QueueConfig holds the notification queue configuration
type QueueConfig struct {
	URL string `yaml:"url"`
}

// MailConfig holds outbound mail configuration. Sender must be a
// verified identity in SES.
type MailConfig struct {
	Sender     string `yaml:"sender"`
	SenderName string `yaml:"sender_name"`
}

// RedisConfig holds the optional identity-cache configuration. An empty
// Addr disables the cache.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime as a duration
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// DispatcherConfig holds notification dispatcher poll settings
type DispatcherConfig struct {
	MaxMessages     int32 `yaml:"max_messages"`
	WaitTimeSeconds int32 `yaml:"wait_time_seconds"`
	ErrorBackoffSec int   `yaml:"error_backoff_seconds"`
}

// ErrorBackoff returns the receive-error backoff as a duration
func (c DispatcherConfig) ErrorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffSec) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Storage.IdentitiesTable == "" {
		cfg.Storage.IdentitiesTable = "registrations"
	}
	if cfg.Storage.CertificatesTable == "" {
		cfg.Storage.CertificatesTable = "certificates"
	}
	if cfg.Storage.IdentityIDIndex == "" {
		cfg.Storage.IdentityIDIndex = "identityId-index"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}
	if cfg.Dispatcher.MaxMessages == 0 {
		cfg.Dispatcher.MaxMessages = 10
	}
	if cfg.Dispatcher.WaitTimeSeconds == 0 {
		cfg.Dispatcher.WaitTimeSeconds = 20
	}
	if cfg.Dispatcher.ErrorBackoffSec == 0 {
		cfg.Dispatcher.ErrorBackoffSec = 5
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env
// vars, so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("REGISTRATIONS_TABLE"); v != "" {
		cfg.Storage.IdentitiesTable = v
	}
	if v := os.Getenv("CERTIFICATES_TABLE"); v != "" {
		cfg.Storage.CertificatesTable = v
	}
	if v := os.Getenv("RECEIPTS_BUCKET"); v != "" {
		cfg.Storage.ReceiptsBucket = v
	}
	if v := os.Getenv("SQS_QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}
	if v := os.Getenv("SES_EMAIL_IDENTITY"); v != "" {
		cfg.Mail.Sender = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	return cfg, nil
}
