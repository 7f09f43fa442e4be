package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr            string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type Database struct {
	Host            string        `yaml:"PG_HOST" env:"PG_HOST" env-default:"localhost"`
	Port            string        `yaml:"PG_PORT" env:"PG_PORT" env-default:"5432"`
	User            string        `yaml:"PG_USER" env:"PG_USER" env-required:"true"`
	Password        string        `yaml:"PG_PASSWORD" env:"PG_PASSWORD" env-required:"true"`
	Name            string        `yaml:"PG_DBNAME" env:"PG_DBNAME" env-required:"true"`
	SSLMode         string        `yaml:"PG_SSLMODE" env:"PG_SSLMODE" env-default:"require"`
	MaxOpenConns    int           `yaml:"MAX_OPEN_CONNS" env:"PG_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"MAX_IDLE_CONNS" env:"PG_MAX_IDLE_CONNS" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"CONN_MAX_LIFETIME" env:"PG_CONN_MAX_LIFETIME" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"CONN_MAX_IDLE_TIME" env:"PG_CONN_MAX_IDLE_TIME" env-default:"1m"`
	QueryTimeout    time.Duration `yaml:"QUERY_TIMEOUT" env:"PG_QUERY_TIMEOUT" env-default:"5s"`
	// env-default overwrites a YAML false, so booleans here must default to false.
	SkipMigrate     bool          `yaml:"SKIP_MIGRATE" env:"PG_SKIP_MIGRATE"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"REDIS_PORT" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER" env-required:"true"`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD" env-required:"true"`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

// RateConfig bounds checkout attempts per cart owner.
type RateConfig struct {
	MaxAttempts int64         `yaml:"MAX_ATTEMPTS" env:"MAX_ATTEMPTS" env-default:"5"`
	WindowSize  time.Duration `yaml:"WINDOW_SIZE" env:"WINDOW_SIZE" env-default:"1m"`
}

type SendGrid struct {
	APIKey    string `yaml:"API_KEY" env:"SENDGRID_API_KEY"`
	FromEmail string `yaml:"FROM_EMAIL" env:"SENDGRID_FROM_EMAIL" env-default:"siparis@example.com"`
	FromName  string `yaml:"FROM_NAME" env:"SENDGRID_FROM_NAME" env-default:"Solar Store"`
}

type Security struct {
	JWTKey         string `yaml:"JWT_KEY" env:"JWT_KEY" env-required:"true"`
	JWTExpiryHours int    `yaml:"JWT_EXPIRY_HOURS" env:"JWT_EXPIRY_HOURS" env-default:"24"`
}

type OTel struct {
	ServiceName      string  `yaml:"SERVICE_NAME" env:"OTEL_SERVICE_NAME" env-default:"solar-storefront"`
	ExporterEndpoint string  `yaml:"EXPORTER_ENDPOINT" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SamplerRatio     float64 `yaml:"SAMPLER_RATIO" env:"OTEL_SAMPLER_RATIO" env-default:"1.0"`
}

type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL" env-default:"5m"`
	KeyPrefix  string        `yaml:"key_prefix" env:"CACHE_KEY_PREFIX" env-default:"solar"`
}

// Storefront holds the domain tunables.
type Storefront struct {
	GuestSessionTTLDays  int           `yaml:"GUEST_SESSION_TTL_DAYS" env:"GUEST_SESSION_TTL_DAYS" env-default:"7"`
	GuestCookieInsecure  bool          `yaml:"GUEST_COOKIE_INSECURE" env:"GUEST_COOKIE_INSECURE"`
	ProfileWaitAttempts  int           `yaml:"PROFILE_WAIT_ATTEMPTS" env:"PROFILE_WAIT_ATTEMPTS" env-default:"5"`
	ProfileWaitDelay     time.Duration `yaml:"PROFILE_WAIT_DELAY" env:"PROFILE_WAIT_DELAY" env-default:"500ms"`
	FallbackUSDRate      string        `yaml:"FALLBACK_USD_RATE" env:"FALLBACK_USD_RATE" env-default:"35.00"`
	RateCacheMaxAge      time.Duration `yaml:"RATE_CACHE_MAX_AGE" env:"RATE_CACHE_MAX_AGE" env-default:"1h"`
	SettlementCurrency   string        `yaml:"SETTLEMENT_CURRENCY" env:"SETTLEMENT_CURRENCY" env-default:"TRY"`
	CurrencyLabel        string        `yaml:"CURRENCY_LABEL" env:"CURRENCY_LABEL" env-default:"TL"`
	DisplayLocale        string        `yaml:"DISPLAY_LOCALE" env:"DISPLAY_LOCALE" env-default:"tr-TR"`
	OrderNumberPrefix    string        `yaml:"ORDER_NUMBER_PREFIX" env:"ORDER_NUMBER_PREFIX" env-default:"ORB-"`
	OrderNumberAttempts  int           `yaml:"ORDER_NUMBER_ATTEMPTS" env:"ORDER_NUMBER_ATTEMPTS" env-default:"5"`
	WholesaleRole        string        `yaml:"WHOLESALE_ROLE" env:"WHOLESALE_ROLE" env-default:"b2b"`
	NotifierQueueSize    int           `yaml:"NOTIFIER_QUEUE_SIZE" env:"NOTIFIER_QUEUE_SIZE" env-default:"100"`
	NotifierSendTimeout  time.Duration `yaml:"NOTIFIER_SEND_TIMEOUT" env:"NOTIFIER_SEND_TIMEOUT" env-default:"15s"`
	AdminEmails          []string      `yaml:"ADMIN_EMAILS" env:"ADMIN_EMAILS" env-separator:","`
	ListenerMinReconnect time.Duration `yaml:"LISTENER_MIN_RECONNECT" env:"LISTENER_MIN_RECONNECT" env-default:"10s"`
	ListenerMaxReconnect time.Duration `yaml:"LISTENER_MAX_RECONNECT" env:"LISTENER_MAX_RECONNECT" env-default:"1m"`
	LiveAllowedOrigins   []string      `yaml:"LIVE_ALLOWED_ORIGINS" env:"LIVE_ALLOWED_ORIGINS" env-separator:","`
	LiveSendBuffer       int           `yaml:"LIVE_SEND_BUFFER" env:"LIVE_SEND_BUFFER" env-default:"16"`
}

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-required:"true"`
	HTTPServer   `yaml:"http_server"`
	Database     Database     `yaml:"database"`
	RedisConnect RedisConnect `yaml:"redis"`
	RateConfig   RateConfig   `yaml:"rateConfig"`
	SendGrid     SendGrid     `yaml:"sendgrid"`
	Security     Security     `yaml:"security"`
	OTel         OTel         `yaml:"otel"`
	Cache        CacheConfig  `yaml:"cache"`
	Storefront   Storefront   `yaml:"storefront"`
}

func MustLoad() *Config {

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {

		flags := flag.String("config", "", "gets the config flag value")

		flag.Parse()

		configPath = *flags

		if configPath == "" {
			configPath = "./config/local.yaml"
		}

	}

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		log.Fatalf("can not read config file: %s", err.Error())
	}

	return cfg

}

func LoadConfigFromPath(configPath string) (*Config, error) {

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}

func (d *Database) GetDSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (r *RedisConnect) GetDSN() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s", r.Username, r.Password, r.Host, r.Port)
}

// GuestSessionTTL is the lifetime of a minted guest session id.
func (s *Storefront) GuestSessionTTL() time.Duration {
	return time.Duration(s.GuestSessionTTLDays) * 24 * time.Hour
}
