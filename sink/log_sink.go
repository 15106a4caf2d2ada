package sink

import (
	"context"
	"fmt"
	"log/slog"

	"private-groups/contract"
	"private-groups/domain/event"
)

// LogSink writes every notification to the node log.
type LogSink struct {
	log *slog.Logger
}

var _ contract.EventSink = LogSink{}

func NewLogSink(log *slog.Logger) LogSink {
	return LogSink{log: log}
}

func (s LogSink) Consume(ctx context.Context, n event.Notification) error {
	key := n.SessionKey()
	attrs := []any{"contact_group", key.ContactGroupID, "private_group", key.PrivateGroupID}
	switch evt := n.(type) {
	case event.InvitationRequestReceived:
		attrs = append(attrs, "group", evt.Group.Name, "creator", evt.Group.Creator.Name)
	case event.InvitationResponseReceived:
		attrs = append(attrs, "accepted", evt.Accepted)
	case event.MemberAdded:
		attrs = append(attrs, "member", evt.Member.Name)
	case event.SessionAborted:
		s.log.WarnContext(ctx, string(n.Type()), append(attrs, "role", evt.Role, "from", evt.From)...)
		return nil
	case event.GroupDissolved, event.MemberLeft:
	default:
		s.log.DebugContext(ctx, fmt.Sprintf("Not implemented notification : %T", n))
		return nil
	}
	s.log.InfoContext(ctx, string(n.Type()), attrs...)
	return nil
}
