// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of cmd/server, read from the environment.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// RedisAddr empty selects the in-process cache.
	RedisAddr     string
	RedisPoolSize int

	ReportLocation          *time.Location
	StrictStatusTransitions bool
	SeedSampleData          bool

	BlobDriver      string
	BlobFSRoot      string
	BlobS3Bucket    string
	BlobS3Region    string
	BlobS3Endpoint  string
	BlobS3PathStyle bool

	OTLPEndpoint string
	ServiceName  string
	LogLevel     string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

const defaultSQLiteDSN = "file:visio.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// Load reads an optional .env file, then collects configuration from the
// environment with defaults. Variables already set win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv collects configuration from the process environment only.
func FromEnv() (Config, error) {
	loc := time.Local
	if tz := getenv("REPORT_TIMEZONE", ""); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("load REPORT_TIMEZONE: %w", err)
		}
		loc = l
	}

	driver := strings.ToLower(getenv("DB_DRIVER", "sqlite"))
	dsn := getenv("DB_DSN", "")
	if dsn == "" {
		switch driver {
		case "sqlite":
			dsn = defaultSQLiteDSN
		default:
			return Config{}, fmt.Errorf("DB_DSN required for driver %s", driver)
		}
	}

	cfg := Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		GRPCAddr: getenv("GRPC_ADDR", ":50051"),

		DBDriver:          driver,
		DBDSN:             dsn,
		DBMaxOpenConns:    atoienv("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:    atoienv("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: durenvs("DB_CONN_MAX_LIFETIME_S", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPoolSize: atoienv("REDIS_POOL_SIZE", 100),

		ReportLocation:          loc,
		StrictStatusTransitions: boolenv("STRICT_STATUS_TRANSITIONS", false),
		SeedSampleData:          boolenv("SEED_SAMPLE_DATA", false),

		BlobDriver:      strings.ToLower(getenv("BLOB_DRIVER", "fs")),
		BlobFSRoot:      getenv("BLOB_FS_ROOT", "./exports"),
		BlobS3Bucket:    getenv("BLOB_S3_BUCKET", ""),
		BlobS3Region:    getenv("BLOB_S3_REGION", "us-east-1"),
		BlobS3Endpoint:  getenv("BLOB_S3_ENDPOINT", ""),
		BlobS3PathStyle: boolenv("BLOB_S3_PATH_STYLE", false),

		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getenv("SERVICE_NAME", "visio"),
		LogLevel:     getenv("LOG_LEVEL", "info"),

		RequestTimeout:  durenvms("REQUEST_TIMEOUT_MS", 5000),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT_S", 15),
	}

	if cfg.BlobDriver == "s3" && cfg.BlobS3Bucket == "" {
		return Config{}, fmt.Errorf("BLOB_S3_BUCKET required for s3 blob driver")
	}
	return cfg, nil
}
