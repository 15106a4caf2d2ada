package codec

import (
	"crypto/ed25519"
	"fmt"

	"private-groups/domain"
	"private-groups/errors"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldSessionRole            protowire.Number = 1
	fieldSessionContactGroupID  protowire.Number = 2
	fieldSessionPrivateGroupID  protowire.Number = 3
	fieldSessionLastLocalID     protowire.Number = 4
	fieldSessionLastRemoteID    protowire.Number = 5
	fieldSessionLocalTimestamp  protowire.Number = 6
	fieldSessionInviteTimestamp protowire.Number = 7
	fieldSessionState           protowire.Number = 8
)

func MarshalSession(s domain.Session) []byte {
	var b []byte
	b = appendVarint(b, fieldSessionRole, uint64(s.Role))
	b = appendID(b, fieldSessionContactGroupID, s.ContactGroupID)
	b = appendID(b, fieldSessionPrivateGroupID, s.PrivateGroupID)
	b = appendID(b, fieldSessionLastLocalID, s.LastLocalMessageID)
	b = appendID(b, fieldSessionLastRemoteID, s.LastRemoteMessageID)
	b = appendVarint(b, fieldSessionLocalTimestamp, uint64(s.LocalTimestamp))
	b = appendVarint(b, fieldSessionInviteTimestamp, uint64(s.InviteTimestamp))
	return appendVarint(b, fieldSessionState, uint64(s.State))
}

func UnmarshalSession(b []byte) (domain.Session, error) {
	var (
		s                           domain.Session
		role, state, localTs, invTs uint64
	)
	err := readFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSessionRole:
			return readVarint(typ, b, &role)
		case fieldSessionContactGroupID:
			return readID(typ, b, (*[16]byte)(&s.ContactGroupID))
		case fieldSessionPrivateGroupID:
			return readID(typ, b, (*[16]byte)(&s.PrivateGroupID))
		case fieldSessionLastLocalID:
			return readID(typ, b, (*[16]byte)(&s.LastLocalMessageID))
		case fieldSessionLastRemoteID:
			return readID(typ, b, (*[16]byte)(&s.LastRemoteMessageID))
		case fieldSessionLocalTimestamp:
			return readVarint(typ, b, &localTs)
		case fieldSessionInviteTimestamp:
			return readVarint(typ, b, &invTs)
		case fieldSessionState:
			return readVarint(typ, b, &state)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", errors.ErrMalformedSession, err)
	}
	s.Role = domain.Role(role)
	s.State = domain.State(state)
	s.LocalTimestamp = int64(localTs)
	s.InviteTimestamp = int64(invTs)
	if s.Role != domain.RoleCreator && s.Role != domain.RoleInvitee {
		return domain.Session{}, fmt.Errorf("%w: role %d", errors.ErrMalformedSession, role)
	}
	if !s.State.Valid(s.Role) {
		return domain.Session{}, fmt.Errorf("%w: state %d for %s", errors.ErrMalformedSession, state, s.Role)
	}
	return s, nil
}

const (
	fieldAuthorName      protowire.Number = 1
	fieldAuthorPublicKey protowire.Number = 2
)

func MarshalAuthor(a domain.Author) []byte {
	var b []byte
	b = appendString(b, fieldAuthorName, a.Name)
	return appendBytes(b, fieldAuthorPublicKey, a.PublicKey)
}

func UnmarshalAuthor(b []byte) (domain.Author, error) {
	var (
		name      string
		publicKey []byte
	)
	err := readFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldAuthorName:
			return readString(typ, b, &name)
		case fieldAuthorPublicKey:
			return readBytes(typ, b, &publicKey)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return domain.Author{}, err
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return domain.Author{}, fmt.Errorf("author public key length %d", len(publicKey))
	}
	return domain.NewAuthor(name, ed25519.PublicKey(publicKey)), nil
}

const (
	fieldGroupRecordName    protowire.Number = 1
	fieldGroupRecordCreator protowire.Number = 2
	fieldGroupRecordSalt    protowire.Number = 3
)

// MarshalGroup stores the fields a group id is derived from; the id is
// recomputed on decode.
func MarshalGroup(g domain.PrivateGroup) []byte {
	var b []byte
	b = appendString(b, fieldGroupRecordName, g.Name)
	b = appendBytes(b, fieldGroupRecordCreator, MarshalAuthor(g.Creator))
	return appendBytes(b, fieldGroupRecordSalt, g.Salt[:])
}

func UnmarshalGroup(b []byte) (domain.PrivateGroup, error) {
	var (
		name          string
		creator, salt []byte
	)
	err := readFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldGroupRecordName:
			return readString(typ, b, &name)
		case fieldGroupRecordCreator:
			return readBytes(typ, b, &creator)
		case fieldGroupRecordSalt:
			return readBytes(typ, b, &salt)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return domain.PrivateGroup{}, err
	}
	author, err := UnmarshalAuthor(creator)
	if err != nil {
		return domain.PrivateGroup{}, fmt.Errorf("group creator: %w", err)
	}
	if len(salt) != domain.SaltLength {
		return domain.PrivateGroup{}, fmt.Errorf("group salt length %d", len(salt))
	}
	var s domain.Salt
	copy(s[:], salt)
	return domain.NewPrivateGroup(name, author, s), nil
}

const (
	fieldCountMessages protowire.Number = 1
	fieldCountUnread   protowire.Number = 2
	fieldCountLatest   protowire.Number = 3
)

func MarshalGroupCount(c domain.GroupCount) []byte {
	var b []byte
	b = appendVarint(b, fieldCountMessages, uint64(c.MessageCount))
	b = appendVarint(b, fieldCountUnread, uint64(c.UnreadCount))
	return appendVarint(b, fieldCountLatest, uint64(c.LatestTimestamp))
}

func UnmarshalGroupCount(b []byte) (domain.GroupCount, error) {
	var messages, unread, latest uint64
	err := readFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldCountMessages:
			return readVarint(typ, b, &messages)
		case fieldCountUnread:
			return readVarint(typ, b, &unread)
		case fieldCountLatest:
			return readVarint(typ, b, &latest)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return domain.GroupCount{}, err
	}
	return domain.GroupCount{
		MessageCount:    int(messages),
		UnreadCount:     int(unread),
		LatestTimestamp: int64(latest),
	}, nil
}
