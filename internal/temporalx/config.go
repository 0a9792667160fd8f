package temporalx

import (
	"strings"
	"time"

	"github.com/yungbote/techwave-backend/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	AutoRegisterNamespace bool
	// OrderPendingTTL is how long an order may stay pending before expiry cancels it.
	OrderPendingTTL time.Duration
}

func LoadConfig() Config {
	ttl := envutil.Duration("ORDER_PENDING_TTL", 24*time.Hour)
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return Config{
		Address:   strings.TrimSpace(envutil.String("TEMPORAL_ADDRESS", "")),
		Namespace: strings.TrimSpace(envutil.String("TEMPORAL_NAMESPACE", "techwave")),
		TaskQueue: strings.TrimSpace(envutil.String("TEMPORAL_TASK_QUEUE", "techwave-orders")),

		ClientCertPath: strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_CERT_PATH", "")),
		ClientKeyPath:  strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_KEY_PATH", "")),
		ClientCAPath:   strings.TrimSpace(envutil.String("TEMPORAL_CLIENT_CA_PATH", "")),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		OrderPendingTTL:       ttl,
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) mTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
