package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "PAYMENTS_"

const (
	ModeSandbox = "sandbox"
	ModeLive    = "live"

	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	PayPal   PayPalConfig   `koanf:"paypal"`
	Retry    RetryConfig    `koanf:"retry"`
	Logger   LoggerConfig   `koanf:"logger"`
	Worker   WorkerConfig   `koanf:"worker"`
	Admin    AdminConfig    `koanf:"admin"`
}

type WorkerConfig struct {
	Interval    time.Duration `koanf:"interval" validate:"required"`
	BatchSize   int           `koanf:"batch_size" validate:"required"`
	MaxAttempts int           `koanf:"max_attempts" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// PayPalConfig holds the REST credentials and client tuning. WebhookID is
// optional; without it inbound webhooks are stored unverified.
type PayPalConfig struct {
	ClientID       string        `koanf:"client_id" validate:"required,credential"`
	ClientSecret   string        `koanf:"client_secret" validate:"required,credential"`
	Mode           string        `koanf:"mode" validate:"required,oneof=sandbox live"`
	BaseURL        string        `koanf:"base_url" validate:"omitempty,url"`
	WebhookID      string        `koanf:"webhook_id"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
	TokenMargin    time.Duration `koanf:"token_margin"`
	BrandName      string        `koanf:"brand_name"`
}

// APIBaseURL returns the explicit base URL override, or the PayPal host for Mode.
func (c PayPalConfig) APIBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Mode == ModeLive {
		return LiveBaseURL
	}
	return SandboxBaseURL
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

type AdminConfig struct {
	Token string `koanf:"token" validate:"required"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env":            "development",
		"server.port":            "8080",
		"server.read_timeout":    "15s",
		"server.write_timeout":   "30s",
		"server.idle_timeout":    "60s",
		"paypal.mode":            ModeSandbox,
		"paypal.request_timeout": "15s",
		"paypal.token_margin":    "30s",
		"paypal.brand_name":      "Your Store",
		"retry.base_delay":       "200ms",
		"retry.max_retries":      3,
		"logger.level":           "info",
		"logger.format":          "json",
		"worker.interval":        "1m",
		"worker.batch_size":      50,
		"worker.max_attempts":    5,
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	if err := Validate(mainConfig); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// Validate runs the struct tag rules, including the credential check that
// rejects values carrying whitespace or '=' from a mangled .env line.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("credential", validCredential); err != nil {
		return err
	}
	return validate.Struct(cfg)
}

func validCredential(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if strings.Contains(v, "=") {
		return false
	}
	return strings.IndexFunc(v, unicode.IsSpace) < 0
}
