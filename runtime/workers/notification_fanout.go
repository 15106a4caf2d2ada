package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"private-groups/contract"
	"private-groups/domain/event"
)

// NotificationFanout broadcasts committed notifications to the in-process
// sinks (UI bridge, logs).
//
// Delivery is best effort: no retries and no durability. The state change a
// notification reports is already committed, so a slow or failing sink only
// loses its copy. Each sink gets its own timeout.
type NotificationFanout struct {
	log           *slog.Logger
	notifications <-chan event.Notification
	sinks         []contract.EventSink
	sinkTimeout   time.Duration
}

func NewNotificationFanout(log *slog.Logger, notifications <-chan event.Notification, sinkTimeout time.Duration) *NotificationFanout {
	return &NotificationFanout{log: log, notifications: notifications, sinkTimeout: sinkTimeout}
}

func (w *NotificationFanout) Add(sinks ...contract.EventSink) *NotificationFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *NotificationFanout) Run(ctx context.Context) error {
	for {
		select {
		case n := <-w.notifications:
			w.Fanout(ctx, n)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping notification fanout")
			return nil
		}
	}
}

// Fanout hands the notification to every sink concurrently and returns once
// all of them have consumed it or timed out.
func (w *NotificationFanout) Fanout(ctx context.Context, n event.Notification) {
	var wg sync.WaitGroup
	for _, sink := range w.sinks {
		wg.Add(1)
		go func(sink contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, n); err != nil {
				w.log.Warn("Sink failed to consume notification",
					"sink", fmt.Sprintf("%T", sink), "type", n.Type(), "session", n.SessionKey(), "error", err)
			}
		}(sink)
	}
	wg.Wait()
}
