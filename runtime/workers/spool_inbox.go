package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"private-groups/contract"
	"private-groups/errors"
	"private-groups/transport"
)

// SpoolInbox polls the spool written by the contact and hands every payload
// to the receiver. A payload is removed once handled, or once it is known to
// be undecodable. Other failures leave it in place for the next poll.
type SpoolInbox struct {
	spool        *transport.Spool
	receiver     contract.Receiver
	log          *slog.Logger
	batchSize    int
	pollInterval time.Duration
}

func NewSpoolInbox(spool *transport.Spool, receiver contract.Receiver, log *slog.Logger,
	batchSize int, pollInterval time.Duration) *SpoolInbox {
	return &SpoolInbox{
		spool:        spool,
		receiver:     receiver,
		log:          log,
		batchSize:    max(batchSize, 1),
		pollInterval: pollInterval,
	}
}

func (w *SpoolInbox) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		if _, err := w.Poll(ctx); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			w.log.Debug("Context done, stopping spool inbox")
			return nil
		}
	}
}

// Poll handles one batch and returns the number of payloads removed.
func (w *SpoolInbox) Poll(ctx context.Context) (int, error) {
	entries, err := w.spool.Pending(w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("read spool: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		_, err = w.receiver.ReceiveRaw(ctx, e.Payload)
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrMalformedMessage):
			w.log.Warn("Undecodable payload discarded", "path", e.Path, "error", err)
		default:
			w.log.Warn("Payload kept for retry", "path", e.Path, "error", err)
			continue
		}
		if err = w.spool.Remove(e); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
