package event

import (
	"private-groups/domain"
)

type Type string

const (
	InvitationRequestReceivedType  Type = "INVITATION_REQUEST_RECEIVED"
	InvitationResponseReceivedType Type = "INVITATION_RESPONSE_RECEIVED"
	GroupDissolvedType             Type = "GROUP_DISSOLVED"
	MemberAddedType                Type = "MEMBER_ADDED"
	MemberLeftType                 Type = "MEMBER_LEFT"
	SessionAbortedType             Type = "SESSION_ABORTED"
)

// Notification is returned by a transition and delivered to observers once
// the transition has been committed.
type Notification interface {
	Type() Type
	SessionKey() domain.SessionKey
}

// InvitationRequestReceived is raised on the invitee side when a valid invite arrives.
type InvitationRequestReceived struct {
	Key       domain.SessionKey
	InviteID  domain.MessageID
	Group     domain.PrivateGroup
	Text      string
	Timestamp int64
}

func (InvitationRequestReceived) Type() Type                      { return InvitationRequestReceivedType }
func (n InvitationRequestReceived) SessionKey() domain.SessionKey { return n.Key }

// InvitationResponseReceived is raised on the creator side when the invitee
// accepts or declines.
type InvitationResponseReceived struct {
	Key       domain.SessionKey
	MessageID domain.MessageID
	Accepted  bool
	Timestamp int64
}

func (InvitationResponseReceived) Type() Type                      { return InvitationResponseReceivedType }
func (n InvitationResponseReceived) SessionKey() domain.SessionKey { return n.Key }

type GroupDissolved struct {
	Key       domain.SessionKey
	Timestamp int64
}

func (GroupDissolved) Type() Type                      { return GroupDissolvedType }
func (n GroupDissolved) SessionKey() domain.SessionKey { return n.Key }

// MemberAdded confirms on the creator side that the contact became a member.
type MemberAdded struct {
	Key    domain.SessionKey
	Member domain.Author
}

func (MemberAdded) Type() Type                      { return MemberAddedType }
func (n MemberAdded) SessionKey() domain.SessionKey { return n.Key }

// MemberLeft is raised on the creator side when a joined contact leaves.
type MemberLeft struct {
	Key       domain.SessionKey
	Timestamp int64
}

func (MemberLeft) Type() Type                      { return MemberLeftType }
func (n MemberLeft) SessionKey() domain.SessionKey { return n.Key }

// SessionAborted reports that the session moved to ERROR and an abort was sent.
type SessionAborted struct {
	Key  domain.SessionKey
	Role domain.Role
	From domain.State
}

func (SessionAborted) Type() Type                      { return SessionAbortedType }
func (n SessionAborted) SessionKey() domain.SessionKey { return n.Key }
