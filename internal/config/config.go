package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	PayMongo PayMongoConfig `mapstructure:"paymongo"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	Port     int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN         string `mapstructure:"dsn"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"name"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxIdle     int    `mapstructure:"max_idle"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EventsConfig struct {
	Broker       string `mapstructure:"broker"` // rabbitmq | kafka | none
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`
}

func (e EventsConfig) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type PayMongoConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	SecretKey     string        `mapstructure:"secret_key"`
	BaseURL       string        `mapstructure:"base_url"`
	SuccessURL    string        `mapstructure:"success_url"` // %s is replaced by the order number
	FailedURL     string        `mapstructure:"failed_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type SMSConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	SenderName  string        `mapstructure:"sender_name"`
	BaseURL     string        `mapstructure:"base_url"`
	CountryCode string        `mapstructure:"country_code"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Configured mirrors Semaphore's key shape: anything short or still holding the
// placeholder is treated as absent.
func (s SMSConfig) Configured() bool {
	return len(s.APIKey) >= 20 && !strings.HasPrefix(s.APIKey, "YOUR_")
}

type CatalogConfig struct {
	SheetURL string        `mapstructure:"sheet_url"`
	APIKey   string        `mapstructure:"api_key"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AdminConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

var defaults = map[string]any{
	"app.env":       "dev",
	"app.log_level": "info",
	"app.port":      8080,

	"database.driver":       "mysql",
	"database.dsn":          "",
	"database.host":         "localhost",
	"database.port":         3306,
	"database.user":         "",
	"database.password":     "",
	"database.name":         "restaurant",
	"database.auto_migrate": true,
	"database.max_open":     50,
	"database.max_idle":     10,

	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,

	"events.broker":        "none",
	"events.url":           "",
	"events.exchange":      "order.exchange",
	"events.kafka_brokers": "",
	"events.kafka_topic":   "orders",

	"paymongo.enabled":        false,
	"paymongo.secret_key":     "",
	"paymongo.base_url":       "https://api.paymongo.com/v1",
	"paymongo.success_url":    "http://localhost:5173/payment/success?order=%s",
	"paymongo.failed_url":     "http://localhost:5173/payment/failed?order=%s",
	"paymongo.webhook_secret": "",
	"paymongo.timeout":        5 * time.Second,

	"sms.enabled":      true,
	"sms.api_key":      "",
	"sms.sender_name":  "Kuchefnero",
	"sms.base_url":     "https://api.semaphore.co/api/v4",
	"sms.country_code": "63",
	"sms.timeout":      5 * time.Second,

	"catalog.sheet_url": "",
	"catalog.api_key":   "",
	"catalog.cache_ttl": time.Minute,
	"catalog.timeout":   5 * time.Second,

	"admin.jwt_secret": "",
}

// Load reads configuration from the environment (APP_PORT, DATABASE_HOST,
// PAYMONGO_SECRET_KEY, ...) and, when CONFIG_FILE is set, from that yaml file.
// Environment values win over the file.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q not supported", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required for sqlite"))
	}

	switch c.Events.Broker {
	case "none":
	case "rabbitmq":
		if c.Events.URL == "" {
			errs = append(errs, errors.New("events.url is required for rabbitmq"))
		}
	case "kafka":
		if len(c.Events.KafkaBrokerList()) == 0 {
			errs = append(errs, errors.New("events.kafka_brokers is required for kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.broker %q not supported", c.Events.Broker))
	}

	if c.PayMongo.Enabled {
		if c.PayMongo.SecretKey == "" {
			errs = append(errs, errors.New("paymongo.secret_key is required when paymongo is enabled"))
		}
		if strings.Count(c.PayMongo.SuccessURL, "%s") != 1 || strings.Count(c.PayMongo.FailedURL, "%s") != 1 {
			errs = append(errs, errors.New("paymongo redirect urls must contain exactly one %s for the order number"))
		}
	}
	if c.PayMongo.Timeout <= 0 || c.SMS.Timeout <= 0 || c.Catalog.Timeout <= 0 {
		errs = append(errs, errors.New("gateway timeouts must be positive"))
	}
	if len(c.SMS.SenderName) > 11 {
		errs = append(errs, fmt.Errorf("sms.sender_name %q exceeds 11 characters", c.SMS.SenderName))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
