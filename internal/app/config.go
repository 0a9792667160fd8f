package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/techwave-backend/internal/platform/envutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// Config is the process configuration. Values come from the optional YAML file named
// by CONFIG_FILE and are then overridden by environment variables.
type Config struct {
	ServiceName string `yaml:"service_name"`
	HTTPAddr    string `yaml:"http_addr"`

	// DBDriver is "postgres" or "sqlite". SQLitePath is only read for sqlite.
	DBDriver   string `yaml:"db_driver"`
	SQLitePath string `yaml:"sqlite_path"`

	JWTSecretKey   string        `yaml:"jwt_secret_key"`
	JWTIssuer      string        `yaml:"jwt_issuer"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`

	ShipmentAllowPending bool          `yaml:"shipment_allow_pending"`
	IdempotencyTTL       time.Duration `yaml:"idempotency_ttl"`

	// IdempotencyPendingTTL bounds how long a key stays reserved by an unfinished request.
	IdempotencyPendingTTL time.Duration `yaml:"idempotency_pending_ttl"`

	RunRelay  bool `yaml:"run_relay"`
	RunWorker bool `yaml:"run_worker"`
}

func defaultConfig() Config {
	return Config{
		ServiceName:    "techwave-api",
		HTTPAddr:       ":8080",
		DBDriver:       "postgres",
		SQLitePath:     "file:techwave.db?_busy_timeout=5000",
		JWTSecretKey:   "defaultsecret",
		JWTIssuer:      "techwave",
		AccessTokenTTL: time.Hour,
		IdempotencyTTL: 24 * time.Hour,
		RunRelay:       true,
		RunWorker:      true,

		IdempotencyPendingTTL: 2 * time.Minute,
	}
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}
	cfg = applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.DBDriver = strings.ToLower(envutil.String("DB_DRIVER", cfg.DBDriver))
	cfg.SQLitePath = envutil.String("SQLITE_PATH", cfg.SQLitePath)
	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.JWTIssuer = envutil.String("JWT_ISSUER", cfg.JWTIssuer)
	cfg.AccessTokenTTL = envutil.Duration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.ShipmentAllowPending = envutil.Bool("SHIPMENT_ALLOW_PENDING", cfg.ShipmentAllowPending)
	cfg.IdempotencyTTL = envutil.Duration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.IdempotencyPendingTTL = envutil.Duration("IDEMPOTENCY_PENDING_TTL", cfg.IdempotencyPendingTTL)
	cfg.RunRelay = envutil.Bool("RUN_OUTBOX_RELAY", cfg.RunRelay)
	cfg.RunWorker = envutil.Bool("RUN_TEMPORAL_WORKER", cfg.RunWorker)
	return cfg
}

func (c Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY must not be empty")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.IdempotencyPendingTTL > c.IdempotencyTTL {
		return fmt.Errorf("IDEMPOTENCY_PENDING_TTL must not exceed IDEMPOTENCY_TTL")
	}
	return nil
}
