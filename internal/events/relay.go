package events

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/data/repos"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/envutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type RelayConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
	MaxBackoff   time.Duration
}

func LoadRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:    envutil.Int("OUTBOX_BATCH_SIZE", 100),
		PollInterval: envutil.Duration("OUTBOX_POLL_INTERVAL", time.Second),
		MaxAttempts:  envutil.Int("OUTBOX_MAX_ATTEMPTS", 10),
		MaxBackoff:   envutil.Duration("OUTBOX_MAX_BACKOFF", 30*time.Second),
	}
}

// Relay moves committed outbox rows to the publisher. Rows are claimed with SKIP LOCKED
// so several relays can run side by side; delivery is at least once.
type Relay struct {
	db        *gorm.DB
	log       *logger.Logger
	repo      repos.OutboxRepo
	publisher Publisher
	metrics   *observability.Metrics
	cfg       RelayConfig
	now       func() time.Time
}

func NewRelay(db *gorm.DB, baseLog *logger.Logger, repo repos.OutboxRepo, publisher Publisher, metrics *observability.Metrics, cfg RelayConfig) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Relay{
		db:        db,
		log:       baseLog.With("component", "OutboxRelay"),
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled. A full batch is followed by an immediate poll.
// Poll errors and batches where nothing could be published back off exponentially;
// any progress resets the backoff.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("Starting outbox relay", "batch_size", r.cfg.BatchSize, "poll_interval", r.cfg.PollInterval)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.PollInterval
	b.MaxInterval = r.cfg.MaxBackoff

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Outbox relay stopped")
			return nil
		case <-timer.C:
			batch, err := r.RunOnce(ctx)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			wait := r.nextWait(b, batch, err)
			if err != nil {
				r.log.Warn("Outbox poll failed", "error", err, "retry_in", wait)
			} else if batch.Stalled() {
				r.log.Warn("Outbox batch made no progress", "claimed", batch.Claimed, "retry_in", wait)
			}
			timer.Reset(wait)
		}
	}
}

func (r *Relay) nextWait(b backoff.BackOff, batch Batch, err error) time.Duration {
	switch {
	case err != nil, batch.Stalled():
		return b.NextBackOff()
	case batch.Claimed >= r.cfg.BatchSize:
		b.Reset()
		return 0
	default:
		b.Reset()
		return r.cfg.PollInterval
	}
}

// Batch counts the rows one poll claimed and how many of them were published.
type Batch struct {
	Claimed int
	Sent    int
}

// Stalled reports a batch where every claimed row failed to publish.
func (b Batch) Stalled() bool { return b.Claimed > 0 && b.Sent == 0 }

// RunOnce claims one batch and publishes it.
// Per-event publish failures are recorded on the row and are not returned.
func (r *Relay) RunOnce(ctx context.Context) (Batch, error) {
	var batch Batch
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		rows, err := r.repo.ClaimPending(dbc, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return err
		}
		batch.Claimed = len(rows)
		r.metrics.SetOutboxBatch(batch.Claimed)
		if batch.Claimed == 0 {
			return nil
		}

		sent := make([]uuid.UUID, 0, len(rows))
		for _, ev := range rows {
			if err := r.publisher.Publish(ctx, ev); err != nil {
				r.metrics.ObserveOutboxPublish(ev.Topic, "failure")
				r.log.Warn("Outbox publish failed",
					"event_id", ev.ID,
					"event_type", ev.EventType,
					"attempts", ev.Attempts+1,
					"error", err,
				)
				if mErr := r.repo.MarkFailed(dbc, ev.ID, err.Error()); mErr != nil {
					return mErr
				}
				continue
			}
			r.metrics.ObserveOutboxPublish(ev.Topic, "success")
			sent = append(sent, ev.ID)
		}
		batch.Sent = len(sent)
		return r.repo.MarkSent(dbc, sent, r.now())
	})
	if err != nil {
		return Batch{}, err
	}
	if batch.Claimed > 0 {
		r.log.Debug("Outbox batch relayed", "claimed", batch.Claimed, "sent", batch.Sent)
	}
	return batch, nil
}
