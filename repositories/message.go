package repositories

import (
	"fmt"
	"log/slog"

	"private-groups/codec"
	"private-groups/contract"
	"private-groups/domain"
	"private-groups/errors"

	"github.com/dgraph-io/badger/v4"
)

// MessageRepository keeps every invitation message exchanged with contacts,
// the UI flags attached to them and the per contact group tracker.
type MessageRepository struct {
	log *slog.Logger
}

var _ contract.IMessageRepository = MessageRepository{}

func NewMessageRepository(log *slog.Logger) MessageRepository {
	return MessageRepository{log: log}
}

// Store persists a message under its id. Ids are derived from the content, so
// an id already present means the same message was delivered twice.
func (r MessageRepository) Store(txn *badger.Txn, m domain.Message, local bool) (bool, error) {
	id := m.Header().ID
	if id.IsZero() {
		return false, fmt.Errorf("%w: unsealed %s", errors.ErrInvalidMessage, m.Type())
	}
	found, err := exists(txn, messageKey(id))
	if err != nil || found {
		return false, err
	}
	if err = txn.Set(messageKey(id), codec.Marshal(m)); err != nil {
		return false, err
	}
	if local {
		if err = txn.Set(localKey(id), nil); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r MessageRepository) Get(txn *badger.Txn, id domain.MessageID) (domain.Message, error) {
	raw, err := get(txn, messageKey(id), errors.ErrMessageNotFound)
	if err != nil {
		return nil, err
	}
	return codec.Unmarshal(raw)
}

func (r MessageRepository) IsLocal(txn *badger.Txn, id domain.MessageID) (bool, error) {
	return exists(txn, localKey(id))
}

// SetAnswerable is indexed by session so that the invites of one session can
// be closed at once.
func (r MessageRepository) SetAnswerable(txn *badger.Txn, id domain.MessageID, answerable bool) error {
	m, err := r.Get(txn, id)
	if err != nil {
		return fmt.Errorf("set answerable %s: %w", id, err)
	}
	return setFlag(txn, answerableKey(m.Header().SessionKey(), id), answerable)
}

func (r MessageRepository) IsAnswerable(txn *badger.Txn, id domain.MessageID) (bool, error) {
	m, err := r.Get(txn, id)
	if err != nil {
		return false, err
	}
	return exists(txn, answerableKey(m.Header().SessionKey(), id))
}

func (r MessageRepository) SetVisibleInUI(txn *badger.Txn, id domain.MessageID, visible bool) error {
	return setFlag(txn, visibleKey(id), visible)
}

func (r MessageRepository) IsVisibleInUI(txn *badger.Txn, id domain.MessageID) (bool, error) {
	return exists(txn, visibleKey(id))
}

func (r MessageRepository) MarkInvitesUnanswerable(txn *badger.Txn, key domain.SessionKey) error {
	prefix := answerableSessionPrefix(key)
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	// Deleting while iterating is not allowed
	it.Close()
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	if len(keys) > 0 {
		r.log.Debug("Invites closed", "session", key, "count", len(keys))
	}
	return nil
}

func (r MessageRepository) Track(txn *badger.Txn, contactGroupID domain.GroupID, timestamp int64, read bool) error {
	count, err := r.Count(txn, contactGroupID)
	if err != nil {
		return err
	}
	return txn.Set(countKey(contactGroupID), codec.MarshalGroupCount(count.Track(timestamp, read)))
}

// Count returns a zero count for a contact group without messages.
func (r MessageRepository) Count(txn *badger.Txn, contactGroupID domain.GroupID) (domain.GroupCount, error) {
	raw, err := get(txn, countKey(contactGroupID), nil)
	if err != nil || raw == nil {
		return domain.GroupCount{}, err
	}
	return codec.UnmarshalGroupCount(raw)
}
