// Package domain contains core concepts of the private group invitation protocol.
// This file defines the per-contact, per-group session state.
package domain

import "fmt"

type Role int

const (
	RoleCreator Role = iota
	RoleInvitee
)

func (r Role) String() string {
	switch r {
	case RoleCreator:
		return "CREATOR"
	case RoleInvitee:
		return "INVITEE"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// State is shared by both roles. The creator never reaches ACCEPTED.
type State int

const (
	Start State = iota
	Invited
	Accepted
	Joined
	Left
	Dissolved
	Error
)

func (s State) String() string {
	switch s {
	case Start:
		return "START"
	case Invited:
		return "INVITED"
	case Accepted:
		return "ACCEPTED"
	case Joined:
		return "JOINED"
	case Left:
		return "LEFT"
	case Dissolved:
		return "DISSOLVED"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Valid reports whether the state can be held by a session of the given role.
func (s State) Valid(role Role) bool {
	switch s {
	case Start, Invited, Joined, Left, Dissolved, Error:
		return true
	case Accepted:
		return role == RoleInvitee
	default:
		return false
	}
}

// SessionKey addresses one session: a contact group and the private group shared over it.
type SessionKey struct {
	ContactGroupID GroupID
	PrivateGroupID GroupID
}

func (k SessionKey) String() string {
	return k.ContactGroupID.String() + ":" + k.PrivateGroupID.String()
}

// Session is replaced wholesale on every transition and never mutated in place.
type Session struct {
	Role                Role
	ContactGroupID      GroupID
	PrivateGroupID      GroupID
	LastLocalMessageID  MessageID
	LastRemoteMessageID MessageID
	LocalTimestamp      int64
	InviteTimestamp     int64
	State               State
}

// NewSession returns the implicit START session of a (contact, group) pair.
func NewSession(role Role, key SessionKey) Session {
	return Session{
		Role:           role,
		ContactGroupID: key.ContactGroupID,
		PrivateGroupID: key.PrivateGroupID,
		State:          Start,
	}
}

func (s Session) Key() SessionKey {
	return SessionKey{ContactGroupID: s.ContactGroupID, PrivateGroupID: s.PrivateGroupID}
}
