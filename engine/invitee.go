package engine

import (
	"fmt"

	"private-groups/domain"
	"private-groups/domain/event"
	"private-groups/errors"
)

// InviteeEngine drives the session of a peer that was invited to a private
// group by its contact.
type InviteeEngine struct{}

var _ Engine = InviteeEngine{}

func (InviteeEngine) OnInviteAction(s domain.Session, _ Env, _ string, _ int64, _ []byte) (Transition, error) {
	return Transition{}, fmt.Errorf("%w: invitee cannot invite", errors.ErrUnsupportedOperation)
}

func (e InviteeEngine) OnJoinAction(s domain.Session, env Env) (Transition, error) {
	switch s.State {
	case domain.Invited:
		return e.onLocalAccept(s, env)
	default:
		return Transition{}, fmt.Errorf("%w: join from %s", errors.ErrProtocolState, s.State)
	}
}

func (e InviteeEngine) OnLeaveAction(s domain.Session, env Env) (Transition, error) {
	switch s.State {
	case domain.Start, domain.Left, domain.Dissolved, domain.Error:
		return unchanged(s), nil
	case domain.Invited:
		return e.onLocalDecline(s, env), nil
	case domain.Accepted, domain.Joined:
		return e.onLocalLeave(s, env), nil
	default:
		return Transition{}, fmt.Errorf("%w: leave from %s", errors.ErrProtocolState, s.State)
	}
}

func (InviteeEngine) OnMemberAddedAction(s domain.Session, _ Env) (Transition, error) {
	return unchanged(s), nil
}

func (e InviteeEngine) OnInviteMessage(s domain.Session, env Env, m domain.InviteMessage) Transition {
	switch s.State {
	case domain.Start:
		return e.onRemoteInvite(s, env, m)
	case domain.Error:
		return unchanged(s)
	default:
		return Abort(s, env)
	}
}

func (e InviteeEngine) OnJoinMessage(s domain.Session, env Env, m domain.JoinMessage) Transition {
	switch s.State {
	case domain.Accepted:
		return e.onRemoteJoin(s, env, m)
	case domain.Error:
		return unchanged(s)
	default:
		return Abort(s, env)
	}
}

func (e InviteeEngine) OnLeaveMessage(s domain.Session, env Env, m domain.LeaveMessage) Transition {
	switch s.State {
	case domain.Invited, domain.Accepted, domain.Joined, domain.Left:
		return e.onRemoteLeave(s, env, m)
	case domain.Error:
		return unchanged(s)
	default:
		return Abort(s, env)
	}
}

func (InviteeEngine) OnAbortMessage(s domain.Session, env Env, _ domain.AbortMessage) Transition {
	return Abort(s, env)
}

func (InviteeEngine) onLocalAccept(s domain.Session, env Env) (Transition, error) {
	inviteID := s.LastRemoteMessageID
	if inviteID.IsZero() {
		return Transition{}, fmt.Errorf("%w: invited session without invite", errors.ErrProtocolState)
	}
	if env.Group == nil || env.Group.ID != s.PrivateGroupID {
		return Transition{}, fmt.Errorf("%w: %s", errors.ErrMissingGroup, s.PrivateGroupID)
	}
	join := newJoin(s, env)
	effects := []Effect{MarkAnswerable{MessageID: inviteID, Answerable: false}}
	effects = append(effects, sendEffects(join, true)...)
	effects = append(effects,
		Subscribe{Group: *env.Group},
		SetVisibility{Key: s.Key(), Visibility: domain.Visible},
	)
	return Transition{
		Session: afterSend(s, join, domain.Accepted),
		Sent:    join,
		Effects: effects,
	}, nil
}

func (InviteeEngine) onLocalDecline(s domain.Session, env Env) Transition {
	leave := newLeave(s, env)
	effects := []Effect{MarkAnswerable{MessageID: s.LastRemoteMessageID, Answerable: false}}
	effects = append(effects, sendEffects(leave, true)...)
	return Transition{
		Session: afterSend(s, leave, domain.Start),
		Sent:    leave,
		Effects: effects,
	}
}

func (InviteeEngine) onLocalLeave(s domain.Session, env Env) Transition {
	leave := newLeave(s, env)
	return Transition{
		Session: afterSend(s, leave, domain.Left),
		Sent:    leave,
		Effects: sendEffects(leave, false),
	}
}

func (InviteeEngine) onRemoteInvite(s domain.Session, env Env, m domain.InviteMessage) Transition {
	// Stale or replayed invite
	if m.Timestamp <= s.InviteTimestamp {
		return Abort(s, env)
	}
	// Only the contact may invite us, and only to a group it created
	if m.Creator.ID != env.Contact.ID {
		return Abort(s, env)
	}
	group := m.PrivateGroup()
	if group.ID != s.PrivateGroupID {
		return Abort(s, env)
	}
	next := afterReceive(s, m, domain.Invited)
	next.InviteTimestamp = m.Timestamp
	effects := append(receiveEffects(m),
		MarkAnswerable{MessageID: m.ID, Answerable: true},
		StoreGroup{Group: group},
	)
	return Transition{
		Session: next,
		Effects: effects,
		Notifications: []event.Notification{event.InvitationRequestReceived{
			Key:       s.Key(),
			InviteID:  m.ID,
			Group:     group,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		}},
	}
}

func (InviteeEngine) onRemoteJoin(s domain.Session, env Env, m domain.JoinMessage) Transition {
	if !admissible(s, m.MessageHeader, m.PreviousMessageID) {
		return Abort(s, env)
	}
	return Transition{
		Session: afterReceive(s, m, domain.Joined),
		Effects: []Effect{SetVisibility{Key: s.Key(), Visibility: domain.Shared}},
	}
}

func (InviteeEngine) onRemoteLeave(s domain.Session, env Env, m domain.LeaveMessage) Transition {
	if !admissible(s, m.MessageHeader, m.PreviousMessageID) {
		return Abort(s, env)
	}
	var effects []Effect
	if s.State == domain.Invited {
		// The creator withdrew the invite before we answered
		effects = append(effects, MarkAnswerable{MessageID: s.LastRemoteMessageID, Answerable: false})
	}
	if env.Subscribed {
		effects = append(effects,
			SetVisibility{Key: s.Key(), Visibility: domain.Invisible},
			MarkDissolved{PrivateGroupID: s.PrivateGroupID},
		)
	}
	return Transition{
		Session:       afterReceive(s, m, domain.Dissolved),
		Effects:       effects,
		Notifications: []event.Notification{event.GroupDissolved{Key: s.Key(), Timestamp: m.Timestamp}},
	}
}
