// Package validation turns raw payloads received from a contact into
// messages the engines can trust.
package validation

import (
	"fmt"

	"private-groups/codec"
	"private-groups/domain"
	"private-groups/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type header struct {
	Timestamp int64 `validate:"gte=0"`
}

type inviteFields struct {
	CreatorName string `validate:"required,min=1,max=50"`
	PublicKey   []byte `validate:"len=32"`
	GroupName   string `validate:"required,min=1,max=100"`
	Text        string `validate:"max=1000"`
	Signature   []byte `validate:"len=64"`
}

// Parse decodes a raw payload and validates it. Decoding failures wrap
// errors.ErrMalformedMessage, rule violations errors.ErrInvalidMessage.
func Parse(raw []byte) (domain.Message, error) {
	m, err := codec.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	if err = Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks field limits, the message id and, for invites, the
// creator signature.
func Validate(m domain.Message) error {
	h := m.Header()
	if err := validate.Struct(header{Timestamp: h.Timestamp}); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	if sealed := codec.Seal(m).Header().ID; sealed != h.ID {
		return fmt.Errorf("%w: id %s does not match content", errors.ErrInvalidMessage, h.ID)
	}
	invite, ok := m.(domain.InviteMessage)
	if !ok {
		return nil
	}
	err := validate.Struct(inviteFields{
		CreatorName: invite.Creator.Name,
		PublicKey:   invite.Creator.PublicKey,
		GroupName:   invite.GroupName,
		Text:        invite.Text,
		Signature:   invite.Signature,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return VerifyInvite(invite)
}

type groupFields struct {
	Name string `validate:"required,min=1,max=100"`
}

// ValidateGroupName applies the limits checked on received invites to a
// group created locally.
func ValidateGroupName(name string) error {
	if err := validate.Struct(groupFields{Name: name}); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return nil
}

type textFields struct {
	Text string `validate:"max=1000"`
}

func ValidateInviteText(text string) error {
	if err := validate.Struct(textFields{Text: text}); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return nil
}

type authorFields struct {
	Name string `validate:"required,min=1,max=50"`
}

func ValidateAuthorName(name string) error {
	if err := validate.Struct(authorFields{Name: name}); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}
	return nil
}
