// Package domain contains core concepts of the private group invitation protocol.
// This file defines authors and private groups.
package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

const SaltLength = 32

type Salt [SaltLength]byte

// NewSalt draws a random salt for a freshly created private group.
func NewSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return Salt{}, fmt.Errorf("salt generation failed: %w", err)
	}
	return s, nil
}

// Author is a pseudonymous identity, either local or a contact.
type Author struct {
	ID        AuthorID
	Name      string
	PublicKey ed25519.PublicKey
}

func NewAuthor(name string, publicKey ed25519.PublicKey) Author {
	return Author{ID: DeriveAuthorID(name, publicKey), Name: name, PublicKey: publicKey}
}

// PrivateGroup is derived from the fields of an invite.
// Only the creator may invite new members.
type PrivateGroup struct {
	ID      GroupID
	Name    string
	Creator Author
	Salt    Salt
}

func NewPrivateGroup(name string, creator Author, salt Salt) PrivateGroup {
	return PrivateGroup{
		ID:      DerivePrivateGroupID(name, creator.ID, salt),
		Name:    name,
		Creator: creator,
		Salt:    salt,
	}
}

// Visibility controls whether a group and its content are exposed to a contact.
type Visibility int

const (
	Invisible Visibility = iota
	Visible
	Shared
)

func (v Visibility) String() string {
	switch v {
	case Invisible:
		return "INVISIBLE"
	case Visible:
		return "VISIBLE"
	case Shared:
		return "SHARED"
	default:
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
}
