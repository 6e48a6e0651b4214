package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable read by Load.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	Endpoints ServiceEndpoints
	Checkout  CheckoutConfig
	Notify    NotifyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Origins splits the comma-separated CORS origin list.
func (a AppConfig) Origins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN" required:"true"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	Env      string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"STOREFRONT_STRIPE_CURRENCY" default:"eur"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// ServiceEndpoints carries the resolved base URLs of every downstream
// collaborator. Passed into the orchestration components at construction
// time instead of being read from ambient state at call time.
type ServiceEndpoints struct {
	CartStoreURL     string `envconfig:"STOREFRONT_CART_STORE_URL" required:"true"`
	CustomerStoreURL string `envconfig:"STOREFRONT_CUSTOMER_STORE_URL" required:"true"`
	OrderStoreURL    string `envconfig:"STOREFRONT_ORDER_STORE_URL" required:"true"`
	InventoryURL     string `envconfig:"STOREFRONT_INVENTORY_URL" required:"true"`
	NotificationURL  string `envconfig:"STOREFRONT_NOTIFICATION_URL" required:"true"`

	HTTPTimeout time.Duration `envconfig:"STOREFRONT_DOWNSTREAM_HTTP_TIMEOUT" default:"10s"`
}

type CheckoutConfig struct {
	ReservationTTL        time.Duration `envconfig:"STOREFRONT_RESERVATION_TTL" default:"30m"`
	StockDecrementTimeout time.Duration `envconfig:"STOREFRONT_STOCK_DECREMENT_TIMEOUT" default:"10s"`
	CartClearTimeout      time.Duration `envconfig:"STOREFRONT_CART_CLEAR_TIMEOUT" default:"3s"`
}

type NotifyConfig struct {
	QueueSize      int           `envconfig:"STOREFRONT_NOTIFY_QUEUE_SIZE" default:"256"`
	MaxAttempts    uint64        `envconfig:"STOREFRONT_NOTIFY_MAX_ATTEMPTS" default:"5"`
	InitialBackoff time.Duration `envconfig:"STOREFRONT_NOTIFY_INITIAL_BACKOFF" default:"500ms"`
}
