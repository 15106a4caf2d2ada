package repositories

import (
	"fmt"

	"private-groups/domain"
	"private-groups/errors"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Every key starts with its namespace so that one namespace can be
// scanned with a prefix iterator.
//
//	session:{contactGroup}:{privateGroup}     session record
//	message:{id}                              encoded message
//	local:{id}                                present when the message was sent by us
//	answerable:{contactGroup}:{privateGroup}:{id}  present while an invite can be answered
//	visible:{id}                              present when the message is shown in the UI
//	count:{contactGroup}                      message tracker
//	group:{privateGroup}                      group metadata
//	member:{privateGroup}                     present when subscribed
//	dissolved:{privateGroup}                  present once dissolved
//	visibility:{contactGroup}:{privateGroup}  visibility of the group to a contact
//	contact:{contactGroup}                    contact author
//	outbox:{timestamp}:{id}                   message waiting for delivery
const (
	sessionPrefix    = "session:"
	messagePrefix    = "message:"
	localPrefix      = "local:"
	answerablePrefix = "answerable:"
	visiblePrefix    = "visible:"
	countPrefix      = "count:"
	groupPrefix      = "group:"
	memberPrefix     = "member:"
	dissolvedPrefix  = "dissolved:"
	visibilityPrefix = "visibility:"
	contactPrefix    = "contact:"
	outboxPrefix     = "outbox:"
)

func sessionKey(key domain.SessionKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", sessionPrefix, key.ContactGroupID, key.PrivateGroupID))
}

func messageKey(id domain.MessageID) []byte {
	return []byte(messagePrefix + id.String())
}

func localKey(id domain.MessageID) []byte {
	return []byte(localPrefix + id.String())
}

func answerableKey(key domain.SessionKey, id domain.MessageID) []byte {
	return append(answerableSessionPrefix(key), id.String()...)
}

func answerableSessionPrefix(key domain.SessionKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", answerablePrefix, key.ContactGroupID, key.PrivateGroupID))
}

func visibleKey(id domain.MessageID) []byte {
	return []byte(visiblePrefix + id.String())
}

func countKey(contactGroupID domain.GroupID) []byte {
	return []byte(countPrefix + contactGroupID.String())
}

func groupKey(id domain.GroupID) []byte {
	return []byte(groupPrefix + id.String())
}

func memberKey(id domain.GroupID) []byte {
	return []byte(memberPrefix + id.String())
}

func dissolvedKey(id domain.GroupID) []byte {
	return []byte(dissolvedPrefix + id.String())
}

func visibilityKey(key domain.SessionKey) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", visibilityPrefix, key.ContactGroupID, key.PrivateGroupID))
}

func contactKey(contactGroupID domain.GroupID) []byte {
	return []byte(contactPrefix + contactGroupID.String())
}

// outboxKey pads the timestamp to 19 digits so that keys sort chronologically.
func outboxKey(m domain.Message) []byte {
	h := m.Header()
	return []byte(fmt.Sprintf("%s%019d:%s", outboxPrefix, h.Timestamp, h.ID))
}

// exists reports whether key is present, hiding badger.ErrKeyNotFound.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// setFlag writes or removes a presence key.
func setFlag(txn *badger.Txn, key []byte, on bool) error {
	if on {
		return txn.Set(key, nil)
	}
	return txn.Delete(key)
}

// get reads the value of key into a fresh slice. notFound is returned when the key is absent.
func get(txn *badger.Txn, key []byte, notFound error) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
