// Package domain contains core concepts of the private group invitation protocol.
// This file defines identifiers and their deterministic derivation.
// No runtime, storage, or network logic should be added here.
package domain

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/google/uuid"
)

// Namespaces for name-based ids. Changing them changes every derived id.
var (
	messageNamespace = uuid.MustParse("6f1c7a52-2b1e-4f57-9a6c-0f3f64c4d0a1")
	groupNamespace   = uuid.MustParse("b3d0e8c4-7a39-4d6e-8f0e-5c2a91e7d4b2")
	authorNamespace  = uuid.MustParse("1e9a4f7d-c2b8-4a53-b6e1-73d5f0a8c9e3")
)

// GroupID identifies a group: either the private group being shared
// or the contact group carrying the invitation messages.
type GroupID uuid.UUID

func (g GroupID) String() string { return uuid.UUID(g).String() }

func (g GroupID) IsZero() bool { return uuid.UUID(g) == uuid.Nil }

func ParseGroupID(raw string) (GroupID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return GroupID{}, err
	}
	return GroupID(id), nil
}

// NewContactGroupID returns a random contact group id.
func NewContactGroupID() GroupID { return GroupID(uuid.New()) }

// MessageID identifies a message. The zero value means "absent".
type MessageID uuid.UUID

func (m MessageID) String() string { return uuid.UUID(m).String() }

func (m MessageID) IsZero() bool { return uuid.UUID(m) == uuid.Nil }

// AuthorID identifies an author by name and public key.
type AuthorID uuid.UUID

func (a AuthorID) String() string { return uuid.UUID(a).String() }

// DeriveMessageID hashes the sync header and the encoded body of a message,
// so two peers building the same message obtain the same id.
func DeriveMessageID(contactGroupID GroupID, timestamp int64, body []byte) MessageID {
	buf := make([]byte, 0, 16+8+len(body))
	buf = append(buf, contactGroupID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	buf = append(buf, body...)
	return MessageID(uuid.NewSHA1(messageNamespace, buf))
}

// DerivePrivateGroupID binds a group id to its name, creator and salt.
func DerivePrivateGroupID(name string, creator AuthorID, salt Salt) GroupID {
	buf := make([]byte, 0, len(name)+16+SaltLength+4)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = append(buf, creator[:]...)
	buf = append(buf, salt[:]...)
	return GroupID(uuid.NewSHA1(groupNamespace, buf))
}

// DeriveAuthorID binds an author id to a display name and public key.
func DeriveAuthorID(name string, publicKey ed25519.PublicKey) AuthorID {
	buf := make([]byte, 0, len(name)+len(publicKey)+4)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = append(buf, publicKey...)
	return AuthorID(uuid.NewSHA1(authorNamespace, buf))
}
