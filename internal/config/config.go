package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Service string `mapstructure:"service"`
	Env     string `mapstructure:"env"`

	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	DB       DBConfig       `mapstructure:"db"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Cart     CartConfig     `mapstructure:"cart"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Log      LogConfig      `mapstructure:"log"`
}

type HTTPConfig struct {
	Port               string        `mapstructure:"port"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestBodySize int64         `mapstructure:"max_body"`
}

type GRPCConfig struct {
	Port string `mapstructure:"port"`
}

type BillingConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CheckoutConfig struct {
	PublicURL         string        `mapstructure:"public_url"`
	Currency          string        `mapstructure:"currency"`
	MinOrderAmount    int64         `mapstructure:"min_order"`
	MinDonationAmount int64         `mapstructure:"min_donation"`
	PaymentTimeout    time.Duration `mapstructure:"payment_timeout"`
}

type LedgerConfig struct {
	// Backend is one of mongo, postgres, memory.
	Backend string `mapstructure:"backend"`
}

type DBConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Name          string `mapstructure:"name"`
	MigrationsDir string `mapstructure:"migrations"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type CartConfig struct {
	// Backend is one of redis, sqlite, memory.
	Backend       string        `mapstructure:"backend"`
	IdleAfter     time.Duration `mapstructure:"idle_after"`
	EvictInterval time.Duration `mapstructure:"evict_interval"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SQLiteConfig struct {
	Path          string `mapstructure:"path"`
	MigrationsDir string `mapstructure:"migrations"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	// APIURL overrides the processor endpoint, e.g. for a local mock.
	APIURL string `mapstructure:"api_url"`
}

type KafkaConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Brokers            []string `mapstructure:"brokers"`
	NotificationsTopic string   `mapstructure:"notifications_topic"`
	EventsTopic        string   `mapstructure:"events_topic"`
	GroupID            string   `mapstructure:"group_id"`
}

type SweeperConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	StaleAfter  time.Duration `mapstructure:"stale_after"`
	BatchSize   int           `mapstructure:"batch"`
	Concurrency int           `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"source"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service", "storefront")
	v.SetDefault("env", "dev")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_body", 1<<20)

	v.SetDefault("grpc.port", "50055")
	v.SetDefault("billing.addr", "localhost:50055")
	v.SetDefault("billing.timeout", 5*time.Second)

	v.SetDefault("checkout.public_url", "http://localhost:8080")
	v.SetDefault("checkout.currency", "usd")
	v.SetDefault("checkout.min_order", 50)
	v.SetDefault("checkout.min_donation", 50)
	v.SetDefault("checkout.payment_timeout", 15*time.Second)

	v.SetDefault("ledger.backend", "mongo")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "storefront")
	v.SetDefault("db.password", "storefront")
	v.SetDefault("db.name", "storefront")
	v.SetDefault("db.migrations", "internal/ledger/migrations")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "storefront")

	v.SetDefault("cart.backend", "redis")
	v.SetDefault("cart.idle_after", 30*time.Minute)
	v.SetDefault("cart.evict_interval", 5*time.Minute)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*24*time.Hour)
	v.SetDefault("sqlite.path", "carts.db")
	v.SetDefault("sqlite.migrations", "internal/cart/migrations")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.api_url", "")

	v.SetDefault("kafka.enabled", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.notifications_topic", "payment-notifications")
	v.SetDefault("kafka.events_topic", "ledger-events")
	v.SetDefault("kafka.group_id", "storefront")

	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", time.Minute)
	v.SetDefault("sweeper.stale_after", 10*time.Minute)
	v.SetDefault("sweeper.batch", 100)
	v.SetDefault("sweeper.concurrency", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.source", false)
}

// Load reads defaults, then the optional file at path, then the environment.
// Keys map to upper-case env names with dots replaced: db.host -> DB_HOST.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Ledger.Backend {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	switch c.Cart.Backend {
	case "redis", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown cart backend %q", c.Cart.Backend)
	}
	if c.Cart.IdleAfter <= 0 || c.Cart.EvictInterval <= 0 {
		return fmt.Errorf("cart idle_after and evict_interval must be positive")
	}
	if c.Checkout.MinOrderAmount < 0 || c.Checkout.MinDonationAmount < 0 {
		return fmt.Errorf("minimum amounts must not be negative")
	}
	return nil
}
