package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	redisclient "github.com/yungbote/techwave-backend/internal/clients/redis"
	"github.com/yungbote/techwave-backend/internal/events"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
	"github.com/yungbote/techwave-backend/internal/temporalx"
)

// Clients holds the optional infrastructure connections. Each one falls back to an
// in-process implementation when its address is unset.
type Clients struct {
	Redis       *goredis.Client
	Idempotency redisclient.IdempotencyStore
	Publisher   events.Publisher
	Temporal    temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	redisCfg := redisclient.LoadConfig()
	if redisCfg.Enabled() {
		rdb, err := redisclient.NewClient(ctx, redisCfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.Idempotency = redisclient.NewIdempotencyStore(log, rdb, redisCfg.Prefix)
	} else {
		log.Warn("REDIS_ADDR not set; idempotency keys are kept in memory")
		out.Idempotency = redisclient.NewMemoryIdempotencyStore()
	}

	// Kafka
	kafkaCfg := events.LoadKafkaConfig()
	if kafkaCfg.Enabled() {
		pub, err := events.NewKafkaPublisher(log, kafkaCfg)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init kafka publisher: %w", err)
		}
		out.Publisher = pub
	} else {
		log.Warn("KAFKA_BROKERS not set; outbox events are logged only")
		out.Publisher = events.NewLogPublisher(log)
	}

	// Temporal
	tc, err := temporalx.NewClient(log, temporalx.LoadConfig())
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Publisher != nil {
		_ = c.Publisher.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
