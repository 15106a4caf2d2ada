package workers

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"private-groups/codec"
	"private-groups/domain"
	"private-groups/mocks"
	"private-groups/observability"
	"private-groups/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func enqueueAborts(t *testing.T, db *badger.DB, outbox repositories.OutboxRepository, n int) []domain.Message {
	t.Helper()
	cg := domain.NewContactGroupID()
	pg := domain.NewContactGroupID()
	var messages []domain.Message
	for i := range n {
		m := codec.Seal(domain.AbortMessage{MessageHeader: domain.MessageHeader{
			ContactGroupID: cg, PrivateGroupID: pg, Timestamp: int64(1000 + i),
		}})
		messages = append(messages, m)
	}
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		for _, m := range messages {
			if err := outbox.Enqueue(txn, m); err != nil {
				return err
			}
		}
		return nil
	}))
	return messages
}

func pending(t *testing.T, db *badger.DB, outbox repositories.OutboxRepository) int {
	t.Helper()
	var n int
	require.NoError(t, db.View(func(txn *badger.Txn) error {
		messages, err := outbox.Pending(txn, 100)
		n = len(messages)
		return err
	}))
	return n
}

func TestOutboxRelay_DeliversInOrderAndAcks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	db := openDB(t)
	outbox := repositories.NewOutboxRepository(log)
	transport := mocks.NewMockTransport(ctrl)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	// Given three queued messages
	messages := enqueueAborts(t, db, outbox, 3)
	calls := make([]any, 0, len(messages))
	for _, m := range messages {
		calls = append(calls, transport.EXPECT().
			Deliver(gomock.Any(), m.Header().ContactGroupID, codec.Marshal(m)).
			Return(nil))
	}
	gomock.InOrder(calls...)

	relay := NewOutboxRelay(db, log, outbox, transport, 10, time.Second, 0).WithMetrics(metrics)

	// When the outbox is drained
	delivered, err := relay.Drain(context.Background())

	// Then every message was delivered oldest first and removed
	req.NoError(err)
	req.Equal(3, delivered)
	req.Zero(pending(t, db, outbox))
}

func TestOutboxRelay_StopsOnTransportFailure(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	db := openDB(t)
	outbox := repositories.NewOutboxRepository(log)
	transport := mocks.NewMockTransport(ctrl)

	// Given the transport rejecting the second message
	enqueueAborts(t, db, outbox, 3)
	gomock.InOrder(
		transport.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil),
		transport.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("peer offline")),
	)

	relay := NewOutboxRelay(db, log, outbox, transport, 10, time.Second, 0)

	delivered, err := relay.Drain(context.Background())

	// Then the batch stops and the rest stays queued for the next poll
	req.NoError(err)
	req.Equal(1, delivered)
	req.Equal(2, pending(t, db, outbox))
}

func TestOutboxRelay_BatchSize(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	db := openDB(t)
	outbox := repositories.NewOutboxRepository(log)
	transport := mocks.NewMockTransport(ctrl)

	enqueueAborts(t, db, outbox, 5)
	transport.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	relay := NewOutboxRelay(db, log, outbox, transport, 2, time.Second, 1000)

	delivered, err := relay.Drain(context.Background())

	req.NoError(err)
	req.Equal(2, delivered)
	req.Equal(3, pending(t, db, outbox))
}

func TestOutboxRelay_ReadFailure(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	db := openDB(t)
	outbox := mocks.NewMockIOutboxRepository(ctrl)
	transport := mocks.NewMockTransport(ctrl)

	outbox.EXPECT().Pending(gomock.Any(), 10).Return(nil, badger.ErrDBClosed)

	relay := NewOutboxRelay(db, log, outbox, transport, 10, time.Millisecond, 0)

	// Then Run fails so that the supervisor restarts it
	err := relay.Run(context.Background())
	req.ErrorIs(err, badger.ErrDBClosed)
}
