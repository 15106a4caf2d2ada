package codec

import (
	"crypto/ed25519"
	"fmt"

	"private-groups/domain"
	"private-groups/errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope fields.
const (
	fieldID             protowire.Number = 1
	fieldContactGroupID protowire.Number = 2
	fieldPrivateGroupID protowire.Number = 3
	fieldTimestamp      protowire.Number = 4
	fieldType           protowire.Number = 5
	fieldPayload        protowire.Number = 6
)

// Invite payload fields.
const (
	fieldCreatorName      protowire.Number = 1
	fieldCreatorPublicKey protowire.Number = 2
	fieldGroupName        protowire.Number = 3
	fieldSalt             protowire.Number = 4
	fieldText             protowire.Number = 5
	fieldSignature        protowire.Number = 6
)

// Join and leave payload fields.
const fieldPreviousMessageID protowire.Number = 1

// Body encodes the part of a message covered by its id: private group, type
// and payload. The contact group and timestamp are hashed alongside it.
func Body(m domain.Message) []byte {
	h := m.Header()
	var b []byte
	b = appendID(b, fieldPrivateGroupID, h.PrivateGroupID)
	b = appendVarint(b, fieldType, uint64(m.Type()))
	return appendBytes(b, fieldPayload, payload(m))
}

// Marshal encodes a full message, header included.
func Marshal(m domain.Message) []byte {
	h := m.Header()
	var b []byte
	b = appendID(b, fieldID, h.ID)
	b = appendID(b, fieldContactGroupID, h.ContactGroupID)
	b = appendVarint(b, fieldTimestamp, uint64(h.Timestamp))
	return append(b, Body(m)...)
}

// Seal assigns the id derived from the header and body. Messages built
// locally must be sealed before they are stored or sent.
func Seal(m domain.Message) domain.Message {
	h := m.Header()
	id := domain.DeriveMessageID(h.ContactGroupID, h.Timestamp, Body(m))
	switch v := m.(type) {
	case domain.InviteMessage:
		v.ID = id
		return v
	case domain.JoinMessage:
		v.ID = id
		return v
	case domain.LeaveMessage:
		v.ID = id
		return v
	case domain.AbortMessage:
		v.ID = id
		return v
	default:
		panic(fmt.Sprintf("codec: unknown message %T", m))
	}
}

func payload(m domain.Message) []byte {
	var b []byte
	switch v := m.(type) {
	case domain.InviteMessage:
		b = appendString(b, fieldCreatorName, v.Creator.Name)
		b = appendBytes(b, fieldCreatorPublicKey, v.Creator.PublicKey)
		b = appendString(b, fieldGroupName, v.GroupName)
		b = appendBytes(b, fieldSalt, v.Salt[:])
		if v.Text != "" {
			b = appendString(b, fieldText, v.Text)
		}
		b = appendBytes(b, fieldSignature, v.Signature)
	case domain.JoinMessage:
		b = appendID(b, fieldPreviousMessageID, v.PreviousMessageID)
	case domain.LeaveMessage:
		b = appendID(b, fieldPreviousMessageID, v.PreviousMessageID)
	case domain.AbortMessage:
	}
	return b
}

type envelope struct {
	header  domain.MessageHeader
	typ     uint64
	hasType bool
	payload []byte
}

func readEnvelope(b []byte) (envelope, error) {
	var e envelope
	var ts uint64
	err := readFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldID:
			return readID(typ, b, (*[16]byte)(&e.header.ID))
		case fieldContactGroupID:
			return readID(typ, b, (*[16]byte)(&e.header.ContactGroupID))
		case fieldPrivateGroupID:
			return readID(typ, b, (*[16]byte)(&e.header.PrivateGroupID))
		case fieldTimestamp:
			return readVarint(typ, b, &ts)
		case fieldType:
			e.hasType = true
			return readVarint(typ, b, &e.typ)
		case fieldPayload:
			return readBytes(typ, b, &e.payload)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err)
	}
	e.header.Timestamp = int64(ts)
	if e.header.ID.IsZero() || e.header.ContactGroupID.IsZero() || e.header.PrivateGroupID.IsZero() {
		return envelope{}, fmt.Errorf("%w: missing header id", errors.ErrMalformedMessage)
	}
	if !e.hasType {
		return envelope{}, fmt.Errorf("%w: missing message type", errors.ErrMalformedMessage)
	}
	return e, nil
}

// DecodeHeader reads only the envelope, so that a message whose payload is
// malformed can still be routed to its session.
func DecodeHeader(b []byte) (domain.MessageHeader, error) {
	e, err := readEnvelope(b)
	if err != nil {
		return domain.MessageHeader{}, err
	}
	return e.header, nil
}

// Unmarshal decodes a full message. Every failure wraps errors.ErrMalformedMessage.
func Unmarshal(b []byte) (domain.Message, error) {
	e, err := readEnvelope(b)
	if err != nil {
		return nil, err
	}
	m, err := decodePayload(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", errors.ErrMalformedMessage, domain.MessageType(e.typ), err)
	}
	return m, nil
}

func decodePayload(e envelope) (domain.Message, error) {
	switch domain.MessageType(e.typ) {
	case domain.InviteType:
		return decodeInvite(e)
	case domain.JoinType:
		prev, err := decodePrevious(e.payload)
		if err != nil {
			return nil, err
		}
		return domain.JoinMessage{MessageHeader: e.header, PreviousMessageID: prev}, nil
	case domain.LeaveType:
		prev, err := decodePrevious(e.payload)
		if err != nil {
			return nil, err
		}
		return domain.LeaveMessage{MessageHeader: e.header, PreviousMessageID: prev}, nil
	case domain.AbortType:
		return domain.AbortMessage{MessageHeader: e.header}, nil
	default:
		return nil, fmt.Errorf("unknown message type %d", e.typ)
	}
}

func decodeInvite(e envelope) (domain.Message, error) {
	m := domain.InviteMessage{MessageHeader: e.header}
	var (
		creatorName string
		publicKey   []byte
		salt        []byte
	)
	err := readFields(e.payload, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldCreatorName:
			return readString(typ, b, &creatorName)
		case fieldCreatorPublicKey:
			return readBytes(typ, b, &publicKey)
		case fieldGroupName:
			return readString(typ, b, &m.GroupName)
		case fieldSalt:
			return readBytes(typ, b, &salt)
		case fieldText:
			return readString(typ, b, &m.Text)
		case fieldSignature:
			return readBytes(typ, b, &m.Signature)
		default:
			return skip(num, typ, b)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("creator public key length %d", len(publicKey))
	}
	if len(salt) != domain.SaltLength {
		return nil, fmt.Errorf("salt length %d", len(salt))
	}
	copy(m.Salt[:], salt)
	m.Creator = domain.NewAuthor(creatorName, ed25519.PublicKey(publicKey))
	return m, nil
}

func decodePrevious(payload []byte) (domain.MessageID, error) {
	var prev domain.MessageID
	err := readFields(payload, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldPreviousMessageID {
			return readID(typ, b, (*[16]byte)(&prev))
		}
		return skip(num, typ, b)
	})
	return prev, err
}
