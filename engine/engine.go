// Package engine implements the two roles of the private group invitation
// protocol as pure transition functions. An engine never performs I/O: it
// returns the next session together with the message to send, the effects
// to apply and the notifications to publish, and the caller commits all of
// them in one transaction.
package engine

import (
	"private-groups/domain"
	"private-groups/domain/event"
)

// Engine is the transition contract shared by CreatorEngine and InviteeEngine.
//
// Local actions return an error only for caller-contract violations, in which
// case the transition must be discarded. Remote-message handlers never fail:
// a message that is inadmissible in the current state is resolved by the
// abort procedure.
type Engine interface {
	OnInviteAction(s domain.Session, env Env, text string, timestamp int64, signature []byte) (Transition, error)
	OnJoinAction(s domain.Session, env Env) (Transition, error)
	OnLeaveAction(s domain.Session, env Env) (Transition, error)
	OnMemberAddedAction(s domain.Session, env Env) (Transition, error)
	OnInviteMessage(s domain.Session, env Env, m domain.InviteMessage) Transition
	OnJoinMessage(s domain.Session, env Env, m domain.JoinMessage) Transition
	OnLeaveMessage(s domain.Session, env Env, m domain.LeaveMessage) Transition
	OnAbortMessage(s domain.Session, env Env, m domain.AbortMessage) Transition
}

// ForRole returns the engine driving sessions of the given role.
func ForRole(role domain.Role) Engine {
	if role == domain.RoleCreator {
		return CreatorEngine{}
	}
	return InviteeEngine{}
}

// Env carries the facts the surrounding transaction resolved before the
// transition. Engines read nothing else.
type Env struct {
	// Now is the local clock in milliseconds, used for outgoing timestamps.
	Now int64
	// Contact is the author owning the contact group of the session.
	Contact domain.Author
	// Subscribed reports whether the local peer is a member of the private group.
	Subscribed bool
	// Group is the private group of the session, nil when unknown locally.
	Group *domain.PrivateGroup
}

// Transition is the full outcome of one event.
type Transition struct {
	Session       domain.Session
	Sent          domain.Message
	Effects       []Effect
	Notifications []event.Notification
}

// Effect is a change owned by a collaborator.
type Effect interface {
	effect()
}

type SetVisibility struct {
	Key        domain.SessionKey
	Visibility domain.Visibility
}

// StoreGroup records the metadata of a group offered by an invite.
type StoreGroup struct {
	Group domain.PrivateGroup
}

// Subscribe makes the local peer a member of the group.
type Subscribe struct {
	Group domain.PrivateGroup
}

type MarkDissolved struct {
	PrivateGroupID domain.GroupID
}

// MarkAnswerable toggles whether the UI may offer to answer an invite.
type MarkAnswerable struct {
	MessageID  domain.MessageID
	Answerable bool
}

type MarkVisibleInUI struct {
	MessageID domain.MessageID
	Visible   bool
}

// MarkInvitesUnanswerable closes the invites of one session. Other groups
// shared with the same contact keep theirs.
type MarkInvitesUnanswerable struct {
	Key domain.SessionKey
}

// TrackMessage counts a message in the contact group summary.
type TrackMessage struct {
	ContactGroupID domain.GroupID
	Timestamp      int64
	Read           bool
}

func (SetVisibility) effect()           {}
func (StoreGroup) effect()              {}
func (Subscribe) effect()               {}
func (MarkDissolved) effect()           {}
func (MarkAnswerable) effect()          {}
func (MarkVisibleInUI) effect()         {}
func (MarkInvitesUnanswerable) effect() {}
func (TrackMessage) effect()            {}
