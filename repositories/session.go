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

type SessionRepository struct {
	log *slog.Logger
}

var _ contract.ISessionRepository = SessionRepository{}

func NewSessionRepository(log *slog.Logger) SessionRepository {
	return SessionRepository{log: log}
}

func (r SessionRepository) Get(txn *badger.Txn, key domain.SessionKey) (domain.Session, error) {
	raw, err := get(txn, sessionKey(key), errors.ErrSessionNotFound)
	if err != nil {
		return domain.Session{}, err
	}
	return codec.UnmarshalSession(raw)
}

// Put replaces the stored session. Sessions are never updated field by field.
func (r SessionRepository) Put(txn *badger.Txn, s domain.Session) error {
	if s.ContactGroupID.IsZero() || s.PrivateGroupID.IsZero() {
		return fmt.Errorf("%w: missing session key", errors.ErrMalformedSession)
	}
	return txn.Set(sessionKey(s.Key()), codec.MarshalSession(s))
}

// List returns every session, ordered by contact group then private group.
func (r SessionRepository) List(txn *badger.Txn) ([]domain.Session, error) {
	var sessions []domain.Session
	prefix := []byte(sessionPrefix)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(v []byte) error {
			s, err := codec.UnmarshalSession(v)
			if err != nil {
				r.log.Warn("Skipping unreadable session", "key", string(it.Item().Key()), "error", err)
				return nil
			}
			sessions = append(sessions, s)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return sessions, nil
}
