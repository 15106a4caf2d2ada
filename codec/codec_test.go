package codec

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"private-groups/domain"
	"private-groups/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func testInvite() domain.InviteMessage {
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{3}, ed25519.SeedSize))
	creator := domain.NewAuthor("carol", key.Public().(ed25519.PublicKey))
	var salt domain.Salt
	copy(salt[:], bytes.Repeat([]byte{9}, domain.SaltLength))
	group := domain.NewPrivateGroup("hikers", creator, salt)
	return Seal(domain.InviteMessage{
		MessageHeader: domain.MessageHeader{
			ContactGroupID: domain.GroupID(uuid.New()),
			PrivateGroupID: group.ID,
			Timestamp:      1_700_000_000_000,
		},
		Creator:   creator,
		GroupName: group.Name,
		Salt:      salt,
		Text:      "come along",
		Signature: bytes.Repeat([]byte{4}, ed25519.SignatureSize),
	}).(domain.InviteMessage)
}

func TestMessage_RoundTrip(t *testing.T) {
	invite := testInvite()
	join := Seal(domain.JoinMessage{
		MessageHeader:     domain.MessageHeader{ContactGroupID: invite.ContactGroupID, PrivateGroupID: invite.PrivateGroupID, Timestamp: 42},
		PreviousMessageID: invite.ID,
	})
	firstLeave := Seal(domain.LeaveMessage{
		MessageHeader: domain.MessageHeader{ContactGroupID: invite.ContactGroupID, PrivateGroupID: invite.PrivateGroupID, Timestamp: 43},
	})
	abort := Seal(domain.AbortMessage{
		MessageHeader: domain.MessageHeader{ContactGroupID: invite.ContactGroupID, PrivateGroupID: invite.PrivateGroupID, Timestamp: 44},
	})

	for _, m := range []domain.Message{invite, join, firstLeave, abort} {
		t.Run("should round trip "+m.Type().String(), func(t *testing.T) {
			req := require.New(t)

			decoded, err := Unmarshal(Marshal(m))

			req.NoError(err)
			req.Equal(m, decoded)
		})
	}
}

func TestSeal(t *testing.T) {
	req := require.New(t)
	invite := testInvite()

	// Given the same message built twice
	again := Seal(invite).(domain.InviteMessage)
	req.Equal(invite.ID, again.ID)

	// When the body changes, the id changes
	invite.Text = "changed"
	req.NotEqual(again.ID, Seal(invite).Header().ID)

	// When the timestamp changes, the id changes
	again.Timestamp++
	req.NotEqual(invite.ID, Seal(again).Header().ID)
}

func TestDecodeHeader_MalformedPayload(t *testing.T) {
	req := require.New(t)
	invite := testInvite()

	// Given an invite whose creator key is truncated
	var payload []byte
	payload = appendString(payload, fieldCreatorName, invite.Creator.Name)
	payload = appendBytes(payload, fieldCreatorPublicKey, invite.Creator.PublicKey[:8])
	var raw []byte
	raw = appendID(raw, fieldID, invite.ID)
	raw = appendID(raw, fieldContactGroupID, invite.ContactGroupID)
	raw = appendVarint(raw, fieldTimestamp, uint64(invite.Timestamp))
	raw = appendID(raw, fieldPrivateGroupID, invite.PrivateGroupID)
	raw = appendVarint(raw, fieldType, uint64(domain.InviteType))
	raw = appendBytes(raw, fieldPayload, payload)

	// Then the payload fails but the header still routes to the session
	_, err := Unmarshal(raw)
	req.ErrorIs(err, errors.ErrMalformedMessage)
	header, err := DecodeHeader(raw)
	req.NoError(err)
	req.Equal(invite.SessionKey(), header.SessionKey())
	req.Equal(invite.ID, header.ID)
}

func TestUnmarshal_Errors(t *testing.T) {
	invite := testInvite()

	t.Run("should reject garbage", func(t *testing.T) {
		_, err := Unmarshal([]byte{0xff, 0xff, 0xff})
		require.ErrorIs(t, err, errors.ErrMalformedMessage)
	})

	t.Run("should reject a missing header id", func(t *testing.T) {
		var b []byte
		b = appendID(b, fieldContactGroupID, invite.ContactGroupID)
		b = appendVarint(b, fieldType, uint64(domain.AbortType))

		_, err := DecodeHeader(b)

		require.ErrorIs(t, err, errors.ErrMalformedMessage)
	})

	t.Run("should reject an unknown type", func(t *testing.T) {
		var b []byte
		b = appendID(b, fieldID, invite.ID)
		b = appendID(b, fieldContactGroupID, invite.ContactGroupID)
		b = appendID(b, fieldPrivateGroupID, invite.PrivateGroupID)
		b = appendVarint(b, fieldType, 99)

		_, err := Unmarshal(b)

		require.ErrorIs(t, err, errors.ErrMalformedMessage)
	})

	t.Run("should skip unknown fields", func(t *testing.T) {
		req := require.New(t)
		b := Marshal(invite)
		b = protowire.AppendTag(b, 15, protowire.VarintType)
		b = protowire.AppendVarint(b, 7)

		decoded, err := Unmarshal(b)

		req.NoError(err)
		req.Equal(invite, decoded)
	})
}

func TestSession_RoundTrip(t *testing.T) {
	req := require.New(t)
	s := domain.Session{
		Role:                domain.RoleInvitee,
		ContactGroupID:      domain.GroupID(uuid.New()),
		PrivateGroupID:      domain.GroupID(uuid.New()),
		LastLocalMessageID:  domain.MessageID(uuid.New()),
		LastRemoteMessageID: domain.MessageID(uuid.New()),
		LocalTimestamp:      12,
		InviteTimestamp:     10,
		State:               domain.Accepted,
	}

	decoded, err := UnmarshalSession(MarshalSession(s))

	req.NoError(err)
	req.Equal(s, decoded)
}

func TestSession_RejectsImpossibleState(t *testing.T) {
	s := domain.NewSession(domain.RoleCreator, domain.SessionKey{
		ContactGroupID: domain.GroupID(uuid.New()),
		PrivateGroupID: domain.GroupID(uuid.New()),
	})
	s.State = domain.Accepted

	_, err := UnmarshalSession(MarshalSession(s))

	require.ErrorIs(t, err, errors.ErrMalformedSession)
}

func TestGroup_RoundTrip(t *testing.T) {
	req := require.New(t)
	invite := testInvite()
	group := invite.PrivateGroup()

	decoded, err := UnmarshalGroup(MarshalGroup(group))

	req.NoError(err)
	req.Equal(group, decoded)
	req.Equal(invite.PrivateGroupID, decoded.ID)
}

func TestGroupCount_RoundTrip(t *testing.T) {
	c := domain.GroupCount{}.Track(5, true).Track(9, false)

	decoded, err := UnmarshalGroupCount(MarshalGroupCount(c))

	require.NoError(t, err)
	require.Equal(t, domain.GroupCount{MessageCount: 2, UnreadCount: 1, LatestTimestamp: 9}, decoded)
}
