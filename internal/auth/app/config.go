package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	httpapi "github.com/aussiebroadwan/iamcore/internal/auth/http"
	"github.com/aussiebroadwan/iamcore/pkg/cryptox"
	"github.com/aussiebroadwan/iamcore/pkg/httpx"
	"github.com/aussiebroadwan/iamcore/pkg/jwtx"
	"github.com/aussiebroadwan/iamcore/pkg/otelx"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	LedgerStore  = "store"
	LedgerRedis  = "redis"
	LedgerMemory = "memory"
)

// RateLimit is one tier as it appears in configuration.
type RateLimit struct {
	Requests  int `mapstructure:"requests"`
	WindowSec int `mapstructure:"window_sec"`
	Burst     int `mapstructure:"burst"`
}

func (r RateLimit) asConfig() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{
		RequestsPerWindow: r.Requests,
		Window:            time.Duration(r.WindowSec) * time.Second,
		Burst:             r.Burst,
	}
}

// Config keys double as environment variable names, so AUTH_ISSUER may be
// set in the environment or as auth_issuer in the config file.
type Config struct {
	Issuer     string        `mapstructure:"auth_issuer"`
	Audience   string        `mapstructure:"auth_audience"`
	JWTSecret  string        `mapstructure:"auth_jwt_secret"` // Required: HS256 key, at least 32 bytes
	AccessTTL  time.Duration `mapstructure:"auth_access_ttl"`
	RefreshTTL time.Duration `mapstructure:"auth_refresh_ttl"`

	DatabaseDriver string `mapstructure:"auth_database_driver"` // sqlite or postgres
	DatabaseFile   string `mapstructure:"auth_database_file"`
	DatabaseURL    string `mapstructure:"auth_database_url"`

	PepperFile     string `mapstructure:"auth_pepper_file"`
	PasswordHasher string `mapstructure:"auth_password_hasher"` // argon2id or bcrypt
	BcryptCost     int    `mapstructure:"auth_bcrypt_cost"`

	LedgerBackend string `mapstructure:"auth_ledger_backend"` // store, redis or memory
	RedisAddr     string `mapstructure:"auth_redis_addr"`
	RedisPassword string `mapstructure:"auth_redis_password"`
	RedisDB       int    `mapstructure:"auth_redis_db"`
	RedisPrefix   string `mapstructure:"auth_redis_prefix"`

	TFAAppName             string `mapstructure:"auth_tfa_app_name"`
	TFARequireConfirmation bool   `mapstructure:"auth_tfa_require_confirmation"`
	TFASecretKey           string `mapstructure:"auth_tfa_secret_key"` // Optional: seals OTP secrets at rest

	GoogleClientID string `mapstructure:"auth_google_client_id"` // Optional: enables Google sign-in
	GoogleJWKSURL  string `mapstructure:"auth_google_jwks_url"`

	Env                  string        `mapstructure:"env"`
	LogLevel             string        `mapstructure:"log_level"`
	LogFormat            string        `mapstructure:"log_format"`
	Port                 int           `mapstructure:"port"`
	ShutdownGracePeriod  time.Duration `mapstructure:"shutdown_grace_period"`
	HousekeepingInterval time.Duration `mapstructure:"housekeeping_interval"`

	RateLimitStrict   RateLimit `mapstructure:"ratelimit_strict"`
	RateLimitModerate RateLimit `mapstructure:"ratelimit_moderate"`
	RateLimitLenient  RateLimit `mapstructure:"ratelimit_lenient"`

	OTELEnable      bool    `mapstructure:"otel_enable"`
	OTELEndpoint    string  `mapstructure:"otel_exporter_otlp_endpoint"`
	OTELSampleRatio float64 `mapstructure:"otel_sample_ratio"`
}

var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig reads the optional YAML file at path, then lets environment
// variables override it.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth_issuer", "iamcore")
	v.SetDefault("auth_audience", "iamcore")
	v.SetDefault("auth_jwt_secret", "")
	v.SetDefault("auth_access_ttl", jwtx.DefaultAccessTokenTTL)
	v.SetDefault("auth_refresh_ttl", jwtx.DefaultRefreshTokenTTL)

	v.SetDefault("auth_database_driver", DriverSQLite)
	v.SetDefault("auth_database_file", "iamcore.db")
	v.SetDefault("auth_database_url", "")

	v.SetDefault("auth_pepper_file", "pepper")
	v.SetDefault("auth_password_hasher", "argon2id")
	v.SetDefault("auth_bcrypt_cost", 0)

	v.SetDefault("auth_ledger_backend", LedgerStore)
	v.SetDefault("auth_redis_addr", "localhost:6379")
	v.SetDefault("auth_redis_password", "")
	v.SetDefault("auth_redis_db", 0)
	v.SetDefault("auth_redis_prefix", "iamcore")

	v.SetDefault("auth_tfa_app_name", "iamcore")
	v.SetDefault("auth_tfa_require_confirmation", true)
	v.SetDefault("auth_tfa_secret_key", "")

	v.SetDefault("auth_google_client_id", "")
	v.SetDefault("auth_google_jwks_url", "")

	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_grace_period", 10*time.Second)
	v.SetDefault("housekeeping_interval", time.Hour)

	// Nested keys map to RATELIMIT_STRICT_REQUESTS and friends through the
	// key replacer.
	tiers := map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
	}
	for name, l := range tiers {
		v.SetDefault("ratelimit_"+name+".requests", l.RequestsPerWindow)
		v.SetDefault("ratelimit_"+name+".window_sec", int(l.Window/time.Second))
		v.SetDefault("ratelimit_"+name+".burst", l.Burst)
	}

	v.SetDefault("otel_enable", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "localhost:4317")
	v.SetDefault("otel_sample_ratio", 1.0)
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < jwtx.MinHS256SecretSize {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", jwtx.MinHS256SecretSize))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_FILE is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	switch c.LedgerBackend {
	case LedgerStore, LedgerMemory:
	case LedgerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("AUTH_REDIS_ADDR is required for the redis ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_LEDGER_BACKEND %q", c.LedgerBackend))
	}
	if _, err := cryptox.NewHasher(c.PasswordHasher, "", c.BcryptCost); err != nil {
		errs = append(errs, err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.OTELEnable && (c.OTELSampleRatio < 0 || c.OTELSampleRatio > 1) {
		errs = append(errs, errors.New("OTEL_SAMPLE_RATIO must be within [0, 1]"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RateLimits converts the configured tiers. A tier with zero requests is
// disabled.
func (c Config) RateLimits() httpapi.RateLimits {
	return httpapi.RateLimits{
		Strict:   c.RateLimitStrict.asConfig(),
		Moderate: c.RateLimitModerate.asConfig(),
		Lenient:  c.RateLimitLenient.asConfig(),
	}
}

func (c Config) OTel(version string) otelx.Config {
	return otelx.Config{
		Enable:      c.OTELEnable,
		Endpoint:    c.OTELEndpoint,
		ServiceName: "iamcore",
		Version:     version,
		SampleRatio: c.OTELSampleRatio,
	}
}
