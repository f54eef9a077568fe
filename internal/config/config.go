package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	MetadataBackendPostgres = "postgres"
	MetadataBackendMongo    = "mongo"

	BlobBackendMinIO = "minio"
	BlobBackendS3    = "s3"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MongoConfig holds MongoDB connection settings for the document metadata collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Config holds AWS S3 settings. Endpoint is optional and only needed for
// S3-compatible services other than AWS itself.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	ForcePathStyle  bool
}

// UploadConfig constrains what the commit path accepts.
type UploadConfig struct {
	AcceptedContentType string
	MaxBytes            int64
}

// AccessConfig bounds the lifetime of issued view URLs.
type AccessConfig struct {
	DefaultTTLSec int
	MaxTTLSec     int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost           string
	Port              string
	CORSOrigins       string
	LogLevel          string
	MetadataBackend   string
	BlobBackend       string
	StoreOpTimeoutSec int
	Database          DatabaseConfig
	Mongo             MongoConfig
	MinIO             MinIOConfig
	S3                S3Config
	Upload            UploadConfig
	Access            AccessConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:           getEnv("APP_HOST", "localhost:5000"),
		Port:              getEnv("PORT", "5000"),
		CORSOrigins:       getEnv("CORS_ORIGINS", "*"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MetadataBackend:   getEnv("METADATA_BACKEND", MetadataBackendPostgres),
		BlobBackend:       getEnv("BLOB_BACKEND", BlobBackendMinIO),
		StoreOpTimeoutSec: getEnvInt("STORE_OP_TIMEOUT_SEC", 15),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGODB_URI", ""),
			Database:   getEnv("MONGODB_DATABASE", "docvault"),
			Collection: getEnv("MONGODB_COLLECTION", "documents"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			Region:    getEnv("MINIO_REGION", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET_NAME", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			ForcePathStyle:  getEnvBool("AWS_S3_FORCE_PATH_STYLE", false),
		},
		Upload: UploadConfig{
			AcceptedContentType: getEnv("UPLOAD_CONTENT_TYPE", "application/pdf"),
			MaxBytes:            getEnvInt64("UPLOAD_MAX_BYTES", 10<<20),
		},
		Access: AccessConfig{
			DefaultTTLSec: getEnvInt("VIEW_URL_TTL_SEC", 300),
			MaxTTLSec:     getEnvInt("VIEW_URL_MAX_TTL_SEC", 7*24*3600),
		},
	}
}

// Validate reports settings that would make the service unusable at startup.
func (c *AppConfig) Validate() error {
	switch c.MetadataBackend {
	case MetadataBackendPostgres, MetadataBackendMongo:
	default:
		return fmt.Errorf("unsupported METADATA_BACKEND %q", c.MetadataBackend)
	}
	switch c.BlobBackend {
	case BlobBackendMinIO, BlobBackendS3:
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.Upload.AcceptedContentType == "" {
		return fmt.Errorf("UPLOAD_CONTENT_TYPE must not be empty")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Access.DefaultTTLSec <= 0 || c.Access.DefaultTTLSec > c.Access.MaxTTLSec {
		return fmt.Errorf("VIEW_URL_TTL_SEC must be in (0, %d]", c.Access.MaxTTLSec)
	}
	if c.StoreOpTimeoutSec <= 0 {
		return fmt.Errorf("STORE_OP_TIMEOUT_SEC must be positive")
	}
	return nil
}

// StoreOpTimeout is the bound applied to every individual blob or metadata call.
func (c *AppConfig) StoreOpTimeout() time.Duration {
	return time.Duration(c.StoreOpTimeoutSec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
