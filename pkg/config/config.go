package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "inkbridge"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	RecordStore RecordStoreConfig
	Forward     ForwardConfig
	Compositor  CompositorConfig
	Discount    DiscountConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Discount.parseRate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"INKBRIDGE_APP_ENV" default:"development"`
	Port         string `envconfig:"INKBRIDGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"INKBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INKBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver     string `envconfig:"INKBRIDGE_DB_DRIVER" default:"sqlite"`
	DSN        string `envconfig:"INKBRIDGE_DB_DSN"`
	SQLitePath string `envconfig:"INKBRIDGE_DB_SQLITE_PATH" default:"data/forward_log.db"`

	MaxOpenConns    int           `envconfig:"INKBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INKBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INKBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INKBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"INKBRIDGE_DB_AUTO_MIGRATE" default:"true"`
}

// IsSQLite reports whether the log store runs against the file-backed driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"INKBRIDGE_REDIS_URL"`
	Password     string        `envconfig:"INKBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"INKBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INKBRIDGE_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"INKBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INKBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INKBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
	WebhookTTL   time.Duration `envconfig:"INKBRIDGE_REDIS_WEBHOOK_TTL" default:"24h"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

// RecordStoreConfig carries the CRM-style table store credentials. Every field
// except the key-field override is required for forwarding; when any is absent
// the store client degrades to a recorded no-op.
type RecordStoreConfig struct {
	BaseURL  string        `envconfig:"INKBRIDGE_RECORDSTORE_BASE_URL"`
	Token    string        `envconfig:"INKBRIDGE_RECORDSTORE_TOKEN"`
	BaseID   string        `envconfig:"INKBRIDGE_RECORDSTORE_BASE_ID"`
	Table    string        `envconfig:"INKBRIDGE_RECORDSTORE_TABLE"`
	KeyField string        `envconfig:"INKBRIDGE_RECORDSTORE_KEY_FIELD" default:"m__idem"`
	Timeout  time.Duration `envconfig:"INKBRIDGE_RECORDSTORE_TIMEOUT" default:"10s"`
}

// Configured reports whether every required store setting is present.
func (r RecordStoreConfig) Configured() bool {
	return strings.TrimSpace(r.BaseURL) != "" &&
		strings.TrimSpace(r.Token) != "" &&
		strings.TrimSpace(r.BaseID) != "" &&
		strings.TrimSpace(r.Table) != ""
}

type ForwardConfig struct {
	TargetURL string        `envconfig:"INKBRIDGE_FORWARD_TARGET_URL"`
	Timeout   time.Duration `envconfig:"INKBRIDGE_FORWARD_TIMEOUT" default:"10s"`
}

type CompositorConfig struct {
	CanvasSize    int           `envconfig:"INKBRIDGE_COMPOSITOR_CANVAS_SIZE" default:"800"`
	WorksheetLang string        `envconfig:"INKBRIDGE_COMPOSITOR_WORKSHEET_LANG" default:"en"`
	GeometryPath  string        `envconfig:"INKBRIDGE_COMPOSITOR_GEOMETRY_PATH"`
	RenderWorkers int           `envconfig:"INKBRIDGE_COMPOSITOR_RENDER_WORKERS" default:"4"`
	FetchTimeout  time.Duration `envconfig:"INKBRIDGE_COMPOSITOR_FETCH_TIMEOUT" default:"15s"`
}

type DiscountConfig struct {
	DefaultRateRaw string `envconfig:"INKBRIDGE_DISCOUNT_DEFAULT_RATE" default:"0.05"`

	defaultRate decimal.Decimal
}

// DefaultRate returns the parsed membership discount rate.
func (d DiscountConfig) DefaultRate() decimal.Decimal {
	return d.defaultRate
}

func (d *DiscountConfig) parseRate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(d.DefaultRateRaw))
	if err != nil {
		return fmt.Errorf("parsing discount rate %q: %w", d.DefaultRateRaw, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("discount rate %s out of range", rate)
	}
	d.defaultRate = rate
	return nil
}
