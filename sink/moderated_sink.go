package sink

import (
	"context"
	"log/slog"

	"private-groups/contract"
	"private-groups/domain/event"
	"private-groups/moderation"
)

// ModeratedSink censors the invitation text before forwarding to the next
// sink. Other notifications carry no free text and pass through.
type ModeratedSink struct {
	next      contract.EventSink
	moderator *moderation.Moderator
	log       *slog.Logger
}

var _ contract.EventSink = ModeratedSink{}

func NewModeratedSink(next contract.EventSink, moderator *moderation.Moderator, log *slog.Logger) ModeratedSink {
	return ModeratedSink{next: next, moderator: moderator, log: log}
}

func (s ModeratedSink) Consume(ctx context.Context, n event.Notification) error {
	if req, ok := n.(event.InvitationRequestReceived); ok {
		text, words := s.moderator.Censor(req.Text)
		if len(words) > 0 {
			s.log.Debug("Invitation text censored", "invite", req.InviteID, "words", len(words))
		}
		req.Text = text
		n = req
	}
	return s.next.Consume(ctx, n)
}
