//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"private-groups/domain"
	"private-groups/domain/event"

	"github.com/dgraph-io/badger/v4"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives notifications once their transition is committed.
type EventSink interface {
	Consume(ctx context.Context, n event.Notification) error
}

// Transport hands an encoded message to the peer owning its contact group.
// Delivery may be retried: the receiving side deduplicates by message id.
type Transport interface {
	Deliver(ctx context.Context, contactGroupID domain.GroupID, payload []byte) error
}

// Receiver takes a payload read from the transport.
type Receiver interface {
	ReceiveRaw(ctx context.Context, raw []byte) (domain.Session, error)
}

// The stores below take the caller's transaction so that a transition and
// all of its effects commit or roll back together.

type ISessionRepository interface {
	// Get returns errors.ErrSessionNotFound for a pair never seen before.
	Get(txn *badger.Txn, key domain.SessionKey) (domain.Session, error)
	Put(txn *badger.Txn, s domain.Session) error
	List(txn *badger.Txn) ([]domain.Session, error)
}

type IMessageRepository interface {
	// Store returns false when a message with the same id is already stored.
	Store(txn *badger.Txn, m domain.Message, local bool) (bool, error)
	Get(txn *badger.Txn, id domain.MessageID) (domain.Message, error)
	SetAnswerable(txn *badger.Txn, id domain.MessageID, answerable bool) error
	IsAnswerable(txn *badger.Txn, id domain.MessageID) (bool, error)
	SetVisibleInUI(txn *badger.Txn, id domain.MessageID, visible bool) error
	IsVisibleInUI(txn *badger.Txn, id domain.MessageID) (bool, error)
	MarkInvitesUnanswerable(txn *badger.Txn, key domain.SessionKey) error
	Track(txn *badger.Txn, contactGroupID domain.GroupID, timestamp int64, read bool) error
	Count(txn *badger.Txn, contactGroupID domain.GroupID) (domain.GroupCount, error)
}

type IGroupRepository interface {
	// Get returns errors.ErrGroupNotFound when the group metadata is unknown.
	Get(txn *badger.Txn, id domain.GroupID) (domain.PrivateGroup, error)
	Add(txn *badger.Txn, g domain.PrivateGroup) error
	Subscribe(txn *badger.Txn, g domain.PrivateGroup) error
	IsSubscribed(txn *badger.Txn, id domain.GroupID) (bool, error)
	MarkDissolved(txn *badger.Txn, id domain.GroupID) error
	IsDissolved(txn *badger.Txn, id domain.GroupID) (bool, error)
	SetVisibility(txn *badger.Txn, key domain.SessionKey, v domain.Visibility) error
	Visibility(txn *badger.Txn, key domain.SessionKey) (domain.Visibility, error)
}

type IContactRepository interface {
	Add(txn *badger.Txn, contactGroupID domain.GroupID, a domain.Author) error
	// Get returns errors.ErrContactNotFound for an unknown contact group.
	Get(txn *badger.Txn, contactGroupID domain.GroupID) (domain.Author, error)
}

type IOutboxRepository interface {
	Enqueue(txn *badger.Txn, m domain.Message) error
	Pending(txn *badger.Txn, limit int) ([]domain.Message, error)
	Ack(txn *badger.Txn, m domain.Message) error
}
