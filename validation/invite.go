package validation

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"private-groups/domain"
	"private-groups/errors"

	"golang.org/x/crypto/blake2b"
)

const inviteLabel = "private-groups/invite/v1"

// InviteToken is the digest signed by the creator of a private group. It binds
// the invite to one contact group, one private group and one timestamp.
func InviteToken(contactGroupID, privateGroupID domain.GroupID, timestamp int64) []byte {
	buf := make([]byte, 0, len(inviteLabel)+16+16+8)
	buf = append(buf, inviteLabel...)
	buf = append(buf, contactGroupID[:]...)
	buf = append(buf, privateGroupID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	sum := blake2b.Sum256(buf)
	return sum[:]
}

func SignInvite(key ed25519.PrivateKey, contactGroupID, privateGroupID domain.GroupID, timestamp int64) []byte {
	return ed25519.Sign(key, InviteToken(contactGroupID, privateGroupID, timestamp))
}

// VerifyInvite checks that the invite was signed by its creator and that its
// private group id is the one derived from name, creator and salt.
func VerifyInvite(m domain.InviteMessage) error {
	if m.PrivateGroup().ID != m.PrivateGroupID {
		return fmt.Errorf("%w: private group id does not match its descriptor", errors.ErrInvalidMessage)
	}
	token := InviteToken(m.ContactGroupID, m.PrivateGroupID, m.Timestamp)
	if !ed25519.Verify(m.Creator.PublicKey, token, m.Signature) {
		return errors.ErrInvalidSignature
	}
	return nil
}
