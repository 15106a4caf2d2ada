// Package domain contains core concepts of the private group invitation protocol.
// This file defines the invitation messages exchanged between two peers.
// Messages are immutable and already authenticated when they reach the engine.
package domain

import "fmt"

type MessageType int

const (
	InviteType MessageType = iota
	JoinType
	LeaveType
	AbortType
)

func (t MessageType) String() string {
	switch t {
	case InviteType:
		return "INVITE"
	case JoinType:
		return "JOIN"
	case LeaveType:
		return "LEAVE"
	case AbortType:
		return "ABORT"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// Message is implemented by InviteMessage, JoinMessage, LeaveMessage and AbortMessage.
type Message interface {
	Type() MessageType
	Header() MessageHeader
}

// MessageHeader holds the fields common to every invitation message.
type MessageHeader struct {
	ID             MessageID
	ContactGroupID GroupID
	PrivateGroupID GroupID
	Timestamp      int64
}

func (h MessageHeader) Header() MessageHeader { return h }

func (h MessageHeader) SessionKey() SessionKey {
	return SessionKey{ContactGroupID: h.ContactGroupID, PrivateGroupID: h.PrivateGroupID}
}

type InviteMessage struct {
	MessageHeader
	Creator   Author
	GroupName string
	Salt      Salt
	Text      string
	Signature []byte
}

func (InviteMessage) Type() MessageType { return InviteType }

// PrivateGroup rebuilds the group the invite refers to.
func (m InviteMessage) PrivateGroup() PrivateGroup {
	return NewPrivateGroup(m.GroupName, m.Creator, m.Salt)
}

// JoinMessage accepts an invite, or confirms the acceptance on the creator side.
type JoinMessage struct {
	MessageHeader
	PreviousMessageID MessageID
}

func (JoinMessage) Type() MessageType { return JoinType }

// LeaveMessage declines an invite, leaves, or dissolves the group.
type LeaveMessage struct {
	MessageHeader
	PreviousMessageID MessageID
}

func (LeaveMessage) Type() MessageType { return LeaveType }

type AbortMessage struct {
	MessageHeader
}

func (AbortMessage) Type() MessageType { return AbortType }
