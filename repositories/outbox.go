package repositories

import (
	"log/slog"

	"private-groups/codec"
	"private-groups/contract"
	"private-groups/domain"

	"github.com/dgraph-io/badger/v4"
)

// OutboxRepository is the transactional outbox: a message sent by a transition
// is enqueued in the same transaction and removed once delivered.
type OutboxRepository struct {
	log *slog.Logger
}

var _ contract.IOutboxRepository = OutboxRepository{}

func NewOutboxRepository(log *slog.Logger) OutboxRepository {
	return OutboxRepository{log: log}
}

func (r OutboxRepository) Enqueue(txn *badger.Txn, m domain.Message) error {
	return txn.Set(outboxKey(m), codec.Marshal(m))
}

// Pending returns at most limit messages, oldest first.
func (r OutboxRepository) Pending(txn *badger.Txn, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	prefix := []byte(outboxPrefix)
	options := badger.DefaultIteratorOptions
	options.PrefetchSize = limit
	it := txn.NewIterator(options)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
		err := it.Item().Value(func(v []byte) error {
			m, err := codec.Unmarshal(v)
			if err != nil {
				return err
			}
			messages = append(messages, m)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return messages, nil
}

func (r OutboxRepository) Ack(txn *badger.Txn, m domain.Message) error {
	return txn.Delete(outboxKey(m))
}
