// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source    SourceConfig
	Warehouse WarehouseConfig
	Server    ServerConfig
	Run       RunConfig
	Logging   LoggingConfig
}

// SourceConfig locates the raw data sources.
type SourceConfig struct {
	// DatabaseURL is the PostgreSQL URL of the source RDS database.
	// Supports both SOURCE_DATABASE_URL and RDS_URL.
	DatabaseURL string `env:"SOURCE_DATABASE_URL" envAlt:"RDS_URL"`

	// CredsFile is a YAML file with RDS_USER, RDS_PASSWORD, RDS_HOST,
	// RDS_PORT and RDS_DATABASE, used when DatabaseURL is empty.
	CredsFile string `env:"SOURCE_CREDS_FILE"`

	UsersTable  string `env:"USERS_TABLE" default:"legacy_users"`
	OrdersTable string `env:"ORDERS_TABLE" default:"orders_table"`

	CardPDFURL string `env:"CARD_PDF_URL" default:"https://data-handling-public.s3.eu-west-1.amazonaws.com/card_details.pdf"`

	// StoresAPIKey is sent as x-api-key to the stores API.
	StoresAPIKey      string `env:"STORES_API_KEY"`
	StoresCountURL    string `env:"STORES_COUNT_URL" default:"https://aqj7u5id95.execute-api.eu-west-1.amazonaws.com/prod/number_stores"`
	StoreURLTemplate  string `env:"STORE_URL_TEMPLATE" default:"https://aqj7u5id95.execute-api.eu-west-1.amazonaws.com/prod/store_details/{store_number}"`
	StoresConcurrency int    `env:"STORES_CONCURRENCY" default:"8"`

	ProductsS3Address string `env:"PRODUCTS_S3_ADDRESS" default:"s3://data-handling-public/products.csv"`
	AWSRegion         string `env:"AWS_REGION" default:"eu-west-1"`

	// AWSAnonymous sends unsigned S3 requests, enough for public buckets (default: true)
	AWSAnonymous bool `env:"AWS_ANONYMOUS" default:"true"`

	DateEventsURL string `env:"DATE_EVENTS_URL" default:"https://data-handling-public.s3.eu-west-1.amazonaws.com/date_details.json"`

	// HTTPTimeout bounds every request made by the HTTP extractors (default: 30s)
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" default:"30s"`
}

// WarehouseConfig holds the destination settings.
type WarehouseConfig struct {
	// Driver is postgres or sqlite (default: postgres)
	Driver string `env:"WAREHOUSE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string of the warehouse.
	// Supports both WAREHOUSE_URL and DATABASE_URL env vars.
	URL string `env:"WAREHOUSE_URL" envAlt:"DATABASE_URL"`

	// CredsFile is a YAML file with LOCAL_* keys, used when URL is empty.
	CredsFile string `env:"WAREHOUSE_CREDS_FILE"`

	// SQLitePath is the database file for the sqlite driver (default: sales_data.db)
	SQLitePath string `env:"WAREHOUSE_SQLITE_PATH" default:"sales_data.db"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// SnapshotDir receives a CSV copy of every cleaned table. Empty disables snapshots.
	SnapshotDir string `env:"SNAPSHOT_DIR"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is how long shutdown waits for an in-flight run (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKeys, when set, are required in X-API-Key to trigger runs.
	// Comma-separated.
	APIKeys []string `env:"OPS_API_KEYS"`
}

// RunConfig holds pipeline run settings.
type RunConfig struct {
	// Schedule is a standard cron expression. Empty disables scheduled runs.
	Schedule string `env:"RUN_SCHEDULE"`

	// History is how many run reports are kept in memory (default: 20)
	History int `env:"RUN_HISTORY" default:"20"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
