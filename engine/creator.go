package engine

import (
	"fmt"

	"private-groups/codec"
	"private-groups/domain"
	"private-groups/domain/event"
	"private-groups/errors"
)

// CreatorEngine drives the session of the peer that created the private
// group and invites its contact into it.
type CreatorEngine struct{}

var _ Engine = CreatorEngine{}

func (e CreatorEngine) OnInviteAction(s domain.Session, env Env, text string, timestamp int64, signature []byte) (Transition, error) {
	switch s.State {
	case domain.Start:
		return e.onLocalInvite(s, env, text, timestamp, signature)
	default:
		return Transition{}, fmt.Errorf("%w: invite from %s", errors.ErrProtocolState, s.State)
	}
}

func (CreatorEngine) OnJoinAction(domain.Session, Env) (Transition, error) {
	return Transition{}, fmt.Errorf("%w: creator cannot join", errors.ErrUnsupportedOperation)
}

func (e CreatorEngine) OnLeaveAction(s domain.Session, env Env) (Transition, error) {
	switch s.State {
	case domain.Start, domain.Dissolved, domain.Error:
		return unchanged(s), nil
	case domain.Invited, domain.Joined, domain.Left:
		return e.onLocalLeave(s, env), nil
	default:
		return Transition{}, fmt.Errorf("%w: leave from %s", errors.ErrProtocolState, s.State)
	}
}

// OnMemberAddedAction confirms a join observed in the group itself. It only
// has an effect once the invitation handshake completed.
func (CreatorEngine) OnMemberAddedAction(s domain.Session, env Env) (Transition, error) {
	if s.State != domain.Joined {
		return unchanged(s), nil
	}
	return Transition{
		Session:       s,
		Effects:       []Effect{SetVisibility{Key: s.Key(), Visibility: domain.Shared}},
		Notifications: []event.Notification{event.MemberAdded{Key: s.Key(), Member: env.Contact}},
	}, nil
}

func (CreatorEngine) OnInviteMessage(s domain.Session, env Env, _ domain.InviteMessage) Transition {
	if s.State == domain.Error {
		return unchanged(s)
	}
	// Only the creator sends invites
	return Abort(s, env)
}

func (e CreatorEngine) OnJoinMessage(s domain.Session, env Env, m domain.JoinMessage) Transition {
	switch s.State {
	case domain.Invited:
		return e.onRemoteAccept(s, env, m)
	case domain.Dissolved, domain.Error:
		return unchanged(s)
	default:
		return Abort(s, env)
	}
}

func (e CreatorEngine) OnLeaveMessage(s domain.Session, env Env, m domain.LeaveMessage) Transition {
	switch s.State {
	case domain.Invited:
		return e.onRemoteDecline(s, env, m)
	case domain.Joined:
		return e.onRemoteLeave(s, env, m)
	case domain.Dissolved, domain.Error:
		return unchanged(s)
	default:
		return Abort(s, env)
	}
}

func (CreatorEngine) OnAbortMessage(s domain.Session, env Env, _ domain.AbortMessage) Transition {
	return Abort(s, env)
}

func (CreatorEngine) onLocalInvite(s domain.Session, env Env, text string, timestamp int64, signature []byte) (Transition, error) {
	if env.Group == nil || env.Group.ID != s.PrivateGroupID {
		return Transition{}, fmt.Errorf("%w: %s", errors.ErrMissingGroup, s.PrivateGroupID)
	}
	if timestamp <= max(s.LocalTimestamp, s.InviteTimestamp) {
		return Transition{}, fmt.Errorf("%w: %d", errors.ErrStaleTimestamp, timestamp)
	}
	invite := codec.Seal(domain.InviteMessage{
		MessageHeader: domain.MessageHeader{
			ContactGroupID: s.ContactGroupID,
			PrivateGroupID: s.PrivateGroupID,
			Timestamp:      timestamp,
		},
		Creator:   env.Group.Creator,
		GroupName: env.Group.Name,
		Salt:      env.Group.Salt,
		Text:      text,
		Signature: signature,
	}).(domain.InviteMessage)

	next := afterSend(s, invite, domain.Invited)
	next.InviteTimestamp = timestamp
	return Transition{
		Session: next,
		Sent:    invite,
		Effects: sendEffects(invite, true),
	}, nil
}

func (CreatorEngine) onLocalLeave(s domain.Session, env Env) Transition {
	leave := newLeave(s, env)
	effects := []Effect{SetVisibility{Key: s.Key(), Visibility: domain.Invisible}}
	return Transition{
		Session: afterSend(s, leave, domain.Dissolved),
		Sent:    leave,
		Effects: append(effects, sendEffects(leave, false)...),
	}
}

func (CreatorEngine) onRemoteAccept(s domain.Session, env Env, m domain.JoinMessage) Transition {
	if !admissible(s, m.MessageHeader, m.PreviousMessageID) {
		return Abort(s, env)
	}
	join := newJoin(s, env)
	effects := receiveEffects(m)
	effects = append(effects, sendEffects(join, false)...)
	effects = append(effects, SetVisibility{Key: s.Key(), Visibility: domain.Shared})
	return Transition{
		Session: afterSend(afterReceive(s, m, domain.Joined), join, domain.Joined),
		Sent:    join,
		Effects: effects,
		Notifications: []event.Notification{event.InvitationResponseReceived{
			Key: s.Key(), MessageID: m.ID, Accepted: true, Timestamp: m.Timestamp,
		}},
	}
}

func (CreatorEngine) onRemoteDecline(s domain.Session, env Env, m domain.LeaveMessage) Transition {
	if !admissible(s, m.MessageHeader, m.PreviousMessageID) {
		return Abort(s, env)
	}
	return Transition{
		Session: afterReceive(s, m, domain.Start),
		Effects: receiveEffects(m),
		Notifications: []event.Notification{event.InvitationResponseReceived{
			Key: s.Key(), MessageID: m.ID, Accepted: false, Timestamp: m.Timestamp,
		}},
	}
}

func (CreatorEngine) onRemoteLeave(s domain.Session, env Env, m domain.LeaveMessage) Transition {
	if !admissible(s, m.MessageHeader, m.PreviousMessageID) {
		return Abort(s, env)
	}
	return Transition{
		Session:       afterReceive(s, m, domain.Left),
		Effects:       []Effect{SetVisibility{Key: s.Key(), Visibility: domain.Invisible}},
		Notifications: []event.Notification{event.MemberLeft{Key: s.Key(), Timestamp: m.Timestamp}},
	}
}
