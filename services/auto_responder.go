package services

import (
	"context"
	"fmt"
	"log/slog"

	"private-groups/contract"
	"private-groups/domain/event"
)

// AutoResponder answers notifications on behalf of an unattended node:
// it accepts every invitation when enabled, and as creator confirms each
// contact that accepted as a member.
//
// It is a sink and a worker. Consume only queues the notification, so the
// fan-out never waits for the transition a response triggers.
type AutoResponder struct {
	svc           IInvitationService
	notifications chan event.Notification
	acceptInvites bool
	log           *slog.Logger
}

var _ contract.EventSink = (*AutoResponder)(nil)

func NewAutoResponder(svc IInvitationService, bufferSize int, acceptInvites bool, log *slog.Logger) *AutoResponder {
	return &AutoResponder{
		svc:           svc,
		notifications: make(chan event.Notification, bufferSize),
		acceptInvites: acceptInvites,
		log:           log,
	}
}

func (w *AutoResponder) Consume(_ context.Context, n event.Notification) error {
	select {
	case w.notifications <- n:
		return nil
	default:
		return fmt.Errorf("auto responder queue full, %s dropped", n.Type())
	}
}

func (w *AutoResponder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-w.notifications:
			w.Respond(ctx, n)
		}
	}
}

// Respond reacts to a single notification. Failures are logged: the
// session stays as it was and the user can still answer by hand.
func (w *AutoResponder) Respond(ctx context.Context, n event.Notification) {
	var err error
	switch evt := n.(type) {
	case event.InvitationRequestReceived:
		if !w.acceptInvites {
			return
		}
		w.log.Info("Accepting invitation", "group", evt.Group.Name, "creator", evt.Group.Creator.Name)
		_, err = w.svc.Accept(ctx, evt.Key)
	case event.InvitationResponseReceived:
		if !evt.Accepted {
			return
		}
		_, err = w.svc.MemberAdded(ctx, evt.Key)
	default:
		return
	}
	if err != nil {
		w.log.Warn("Automatic response failed", "type", n.Type(), "session", n.SessionKey(), "error", err)
	}
}
