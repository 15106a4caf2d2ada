package validation

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"

	"private-groups/codec"
	"private-groups/domain"
	"private-groups/errors"

	"github.com/stretchr/testify/require"
)

var (
	creatorKey  = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{1}, ed25519.SeedSize))
	strangerKey = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{2}, ed25519.SeedSize))
)

func signedInvite(t *testing.T, name, text string) domain.InviteMessage {
	t.Helper()
	creator := domain.NewAuthor("alice", creatorKey.Public().(ed25519.PublicKey))
	var salt domain.Salt
	copy(salt[:], bytes.Repeat([]byte{7}, domain.SaltLength))
	group := domain.NewPrivateGroup(name, creator, salt)
	cg := domain.NewContactGroupID()
	ts := int64(1_700_000_000_000)
	return codec.Seal(domain.InviteMessage{
		MessageHeader: domain.MessageHeader{ContactGroupID: cg, PrivateGroupID: group.ID, Timestamp: ts},
		Creator:       creator,
		GroupName:     name,
		Salt:          salt,
		Text:          text,
		Signature:     SignInvite(creatorKey, cg, group.ID, ts),
	}).(domain.InviteMessage)
}

func TestParse_ValidInvite(t *testing.T) {
	req := require.New(t)
	invite := signedInvite(t, "hikers", "come along")

	// When the encoded invite is parsed
	m, err := Parse(codec.Marshal(invite))

	// Then it is returned unchanged
	req.NoError(err)
	req.Equal(invite, m)
}

func TestParse_Join(t *testing.T) {
	req := require.New(t)
	invite := signedInvite(t, "hikers", "")
	join := codec.Seal(domain.JoinMessage{
		MessageHeader:     domain.MessageHeader{ContactGroupID: invite.ContactGroupID, PrivateGroupID: invite.PrivateGroupID, Timestamp: invite.Timestamp + 1},
		PreviousMessageID: invite.ID,
	})

	m, err := Parse(codec.Marshal(join))

	req.NoError(err)
	req.Equal(join, m)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte{0xff, 0xff})
	require.ErrorIs(t, err, errors.ErrMalformedMessage)
}

func TestValidate_Signature(t *testing.T) {
	req := require.New(t)

	// Given an invite signed by someone other than its creator
	forged := signedInvite(t, "hikers", "")
	forged.Signature = SignInvite(strangerKey, forged.ContactGroupID, forged.PrivateGroupID, forged.Timestamp)
	forged = codec.Seal(forged).(domain.InviteMessage)
	req.ErrorIs(Validate(forged), errors.ErrInvalidSignature)

	// Given a signature replayed into another contact group
	replayed := signedInvite(t, "hikers", "")
	replayed.ContactGroupID = domain.NewContactGroupID()
	replayed = codec.Seal(replayed).(domain.InviteMessage)
	req.ErrorIs(Validate(replayed), errors.ErrInvalidSignature)
}

func TestValidate_InviteRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *domain.InviteMessage)
	}{
		{"empty group name", func(m *domain.InviteMessage) { m.GroupName = "" }},
		{"group name too long", func(m *domain.InviteMessage) { m.GroupName = strings.Repeat("g", 101) }},
		{"text too long", func(m *domain.InviteMessage) { m.Text = strings.Repeat("t", 1001) }},
		{"creator name too long", func(m *domain.InviteMessage) { m.Creator.Name = strings.Repeat("a", 51) }},
		{"short signature", func(m *domain.InviteMessage) { m.Signature = m.Signature[:10] }},
		{"group id not derived", func(m *domain.InviteMessage) { m.PrivateGroupID = domain.NewContactGroupID() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invite := signedInvite(t, "hikers", "")
			tt.mutate(&invite)
			sealed := codec.Seal(invite)

			require.ErrorIs(t, Validate(sealed), errors.ErrInvalidMessage)
		})
	}
}

func TestValidate_LimitsCountRunes(t *testing.T) {
	// 100 multi-byte runes are within the group name limit
	name := strings.Repeat("é", 100)
	require.NoError(t, Validate(signedInvite(t, name, "")))
}

func TestValidate_TamperedID(t *testing.T) {
	invite := signedInvite(t, "hikers", "")
	invite.Text = "changed after sealing"

	require.ErrorIs(t, Validate(invite), errors.ErrInvalidMessage)
}

func TestValidateLocalFields(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateGroupName("hikers"))
	req.ErrorIs(ValidateGroupName(""), errors.ErrInvalidMessage)
	req.NoError(ValidateInviteText(""))
	req.ErrorIs(ValidateInviteText(strings.Repeat("x", 1001)), errors.ErrInvalidMessage)
	req.NoError(ValidateAuthorName("bob"))
	req.ErrorIs(ValidateAuthorName(strings.Repeat("b", 51)), errors.ErrInvalidMessage)
}
