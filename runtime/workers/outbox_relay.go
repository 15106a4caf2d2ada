package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"private-groups/codec"
	"private-groups/contract"
	"private-groups/domain"
	"private-groups/observability"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/time/rate"
)

// OutboxRelay drains the transactional outbox to the transport.
// A message is acked only after the transport accepted it, so a crash between
// the two delivers it again; peers absorb the duplicate by message id.
// On a delivery failure the batch stops, keeping the send order, and the
// message is retried at the next poll.
type OutboxRelay struct {
	db           *badger.DB
	log          *slog.Logger
	outbox       contract.IOutboxRepository
	transport    contract.Transport
	limiter      *rate.Limiter
	metrics      *observability.Metrics
	batchSize    int
	pollInterval time.Duration
}

func NewOutboxRelay(db *badger.DB, log *slog.Logger, outbox contract.IOutboxRepository, transport contract.Transport,
	batchSize int, pollInterval time.Duration, ratePerSecond float64) *OutboxRelay {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &OutboxRelay{
		db:           db,
		log:          log,
		outbox:       outbox,
		transport:    transport,
		limiter:      rate.NewLimiter(limit, max(batchSize, 1)),
		batchSize:    max(batchSize, 1),
		pollInterval: pollInterval,
	}
}

func (w *OutboxRelay) WithMetrics(metrics *observability.Metrics) *OutboxRelay {
	w.metrics = metrics
	return w
}

func (w *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		if _, err := w.Drain(ctx); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			w.log.Debug("Context done, stopping outbox relay")
			return nil
		}
	}
}

// Drain delivers one batch and returns the number of acked messages.
// Only storage failures are returned; transport failures are retried later.
func (w *OutboxRelay) Drain(ctx context.Context) (int, error) {
	var batch []domain.Message
	err := w.db.View(func(txn *badger.Txn) error {
		var err error
		batch, err = w.outbox.Pending(txn, w.batchSize)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read outbox: %w", err)
	}

	delivered := 0
	for _, m := range batch {
		if err = w.limiter.Wait(ctx); err != nil {
			break
		}
		h := m.Header()
		if err = w.transport.Deliver(ctx, h.ContactGroupID, codec.Marshal(m)); err != nil {
			w.metrics.DeliveryFailed()
			w.log.Warn("Delivery failed, retrying later", "message", h.ID, "type", m.Type(), "contact_group", h.ContactGroupID, "error", err)
			break
		}
		if err = w.db.Update(func(txn *badger.Txn) error { return w.outbox.Ack(txn, m) }); err != nil {
			return delivered, fmt.Errorf("ack %s: %w", h.ID, err)
		}
		w.metrics.Delivered()
		delivered++
	}
	w.metrics.Pending(len(batch) - delivered)
	return delivered, nil
}
