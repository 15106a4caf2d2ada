package engine

import (
	"private-groups/codec"
	"private-groups/domain"
	"private-groups/domain/event"
)

// Abort is the single resolution path for protocol-invalid input. It is
// idempotent: a session already in ERROR is returned unchanged and nothing
// is sent.
func Abort(s domain.Session, env Env) Transition {
	if s.State == domain.Error {
		return unchanged(s)
	}
	t := Transition{
		Effects: []Effect{MarkInvitesUnanswerable{Key: s.Key()}},
	}
	if env.Subscribed {
		t.Effects = append(t.Effects, SetVisibility{Key: s.Key(), Visibility: domain.Invisible})
	}
	abort := newAbort(s, env)
	t.Sent = abort
	t.Session = afterSend(s, abort, domain.Error)
	t.Notifications = []event.Notification{
		event.SessionAborted{Key: s.Key(), Role: s.Role, From: s.State},
	}
	return t
}

func unchanged(s domain.Session) Transition {
	return Transition{Session: s}
}

// outgoingTimestamp keeps every local message strictly after the last
// message sent and the last invite accepted in the session.
func outgoingTimestamp(s domain.Session, env Env) int64 {
	return max(env.Now, max(s.LocalTimestamp, s.InviteTimestamp)+1)
}

// isValidDependency checks that a remote join or leave follows the last
// message we received from the same peer. A message without dependency is
// only valid as the first message of the remote stream.
func isValidDependency(s domain.Session, dependency domain.MessageID) bool {
	if dependency.IsZero() {
		return s.LastRemoteMessageID.IsZero()
	}
	return dependency == s.LastRemoteMessageID
}

// admissible applies the ordering rule shared by every remote join and leave.
func admissible(s domain.Session, h domain.MessageHeader, dependency domain.MessageID) bool {
	return h.Timestamp > s.InviteTimestamp && isValidDependency(s, dependency)
}

func header(s domain.Session, env Env) domain.MessageHeader {
	return domain.MessageHeader{
		ContactGroupID: s.ContactGroupID,
		PrivateGroupID: s.PrivateGroupID,
		Timestamp:      outgoingTimestamp(s, env),
	}
}

func newJoin(s domain.Session, env Env) domain.JoinMessage {
	return codec.Seal(domain.JoinMessage{
		MessageHeader:     header(s, env),
		PreviousMessageID: s.LastLocalMessageID,
	}).(domain.JoinMessage)
}

func newLeave(s domain.Session, env Env) domain.LeaveMessage {
	return codec.Seal(domain.LeaveMessage{
		MessageHeader:     header(s, env),
		PreviousMessageID: s.LastLocalMessageID,
	}).(domain.LeaveMessage)
}

func newAbort(s domain.Session, env Env) domain.AbortMessage {
	return codec.Seal(domain.AbortMessage{MessageHeader: header(s, env)}).(domain.AbortMessage)
}

// afterSend records a message sent by this peer.
func afterSend(s domain.Session, m domain.Message, state domain.State) domain.Session {
	next := s
	next.LastLocalMessageID = m.Header().ID
	next.LocalTimestamp = m.Header().Timestamp
	next.State = state
	return next
}

// afterReceive records a message received from the peer.
func afterReceive(s domain.Session, m domain.Message, state domain.State) domain.Session {
	next := s
	next.LastRemoteMessageID = m.Header().ID
	next.State = state
	return next
}

// sendEffects are applied to every message this peer sends.
func sendEffects(m domain.Message, visibleInUI bool) []Effect {
	h := m.Header()
	effects := []Effect{TrackMessage{ContactGroupID: h.ContactGroupID, Timestamp: h.Timestamp, Read: true}}
	if visibleInUI {
		effects = append(effects, MarkVisibleInUI{MessageID: h.ID, Visible: true})
	}
	return effects
}

// receiveEffects expose a received message in the conversation.
func receiveEffects(m domain.Message) []Effect {
	h := m.Header()
	return []Effect{
		MarkVisibleInUI{MessageID: h.ID, Visible: true},
		TrackMessage{ContactGroupID: h.ContactGroupID, Timestamp: h.Timestamp, Read: false},
	}
}
