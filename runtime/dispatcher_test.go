package runtime

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"log/slog"
	"sync"
	"testing"
	"time"

	"private-groups/codec"
	"private-groups/domain"
	"private-groups/domain/event"
	"private-groups/errors"
	"private-groups/mocks"
	"private-groups/observability"
	"private-groups/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// node is one peer: its own store and dispatcher.
type node struct {
	db            *badger.DB
	author        domain.Author
	stores        Stores
	dispatcher    *Dispatcher
	notifications chan event.Notification
}

func newStores(log *slog.Logger) Stores {
	return Stores{
		Sessions: repositories.NewSessionRepository(log),
		Messages: repositories.NewMessageRepository(log),
		Groups:   repositories.NewGroupRepository(log),
		Contacts: repositories.NewContactRepository(),
		Outbox:   repositories.NewOutboxRepository(log),
	}
}

func newNode(t *testing.T, name string, seed byte) node {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	author := domain.NewAuthor(name, key.Public().(ed25519.PublicKey))
	notifications := make(chan event.Notification, 16)
	stores := newStores(log)
	clock := time.UnixMilli(1000)
	dispatcher := NewDispatcher(db, log, author, stores, notifications, 3).
		WithMetrics(observability.NewMetrics(prometheus.NewRegistry())).
		WithClock(func() time.Time { return clock })
	return node{db: db, author: author, stores: stores, dispatcher: dispatcher, notifications: notifications}
}

func (n node) addContact(t *testing.T, contactGroupID domain.GroupID, contact domain.Author) {
	t.Helper()
	require.NoError(t, n.db.Update(func(txn *badger.Txn) error {
		return n.stores.Contacts.Add(txn, contactGroupID, contact)
	}))
}

func (n node) createGroup(t *testing.T, name string) domain.PrivateGroup {
	t.Helper()
	var salt domain.Salt
	copy(salt[:], name)
	g := domain.NewPrivateGroup(name, n.author, salt)
	require.NoError(t, n.db.Update(func(txn *badger.Txn) error {
		return n.stores.Groups.Subscribe(txn, g)
	}))
	return g
}

func (n node) session(t *testing.T, key domain.SessionKey) domain.Session {
	t.Helper()
	var s domain.Session
	require.NoError(t, n.db.View(func(txn *badger.Txn) (err error) {
		s, err = n.stores.Sessions.Get(txn, key)
		return err
	}))
	return s
}

func (n node) visibility(t *testing.T, key domain.SessionKey) domain.Visibility {
	t.Helper()
	var v domain.Visibility
	require.NoError(t, n.db.View(func(txn *badger.Txn) (err error) {
		v, err = n.stores.Groups.Visibility(txn, key)
		return err
	}))
	return v
}

// drain removes every pending message of the outbox, re-encoded as on the wire.
func (n node) drain(t *testing.T) []domain.Message {
	t.Helper()
	var out []domain.Message
	require.NoError(t, n.db.Update(func(txn *badger.Txn) error {
		pending, err := n.stores.Outbox.Pending(txn, 100)
		if err != nil {
			return err
		}
		for _, m := range pending {
			if err = n.stores.Outbox.Ack(txn, m); err != nil {
				return err
			}
			decoded, err := codec.Unmarshal(codec.Marshal(m))
			if err != nil {
				return err
			}
			out = append(out, decoded)
		}
		return nil
	}))
	return out
}

// deliver moves every pending message of from to to.
func deliver(t *testing.T, from, to node) {
	t.Helper()
	for _, m := range from.drain(t) {
		_, err := to.dispatcher.Receive(context.Background(), m)
		require.NoError(t, err)
	}
}

type pair struct {
	alice, bob node
	group      domain.PrivateGroup
	key        domain.SessionKey
}

func newPair(t *testing.T) pair {
	alice := newNode(t, "alice", 1)
	bob := newNode(t, "bob", 2)
	contactGroup := domain.NewContactGroupID()
	alice.addContact(t, contactGroup, bob.author)
	bob.addContact(t, contactGroup, alice.author)
	g := alice.createGroup(t, "book club")
	return pair{alice: alice, bob: bob, group: g, key: domain.SessionKey{ContactGroupID: contactGroup, PrivateGroupID: g.ID}}
}

func TestDispatcher_Handshake(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	p := newPair(t)

	// Given Alice inviting Bob
	s, err := p.alice.dispatcher.Invite(ctx, p.key, "come", 1000, []byte("sig"))
	req.NoError(err)
	req.Equal(domain.RoleCreator, s.Role)
	req.Equal(domain.Invited, s.State)

	// When Bob receives the invite
	deliver(t, p.alice, p.bob)
	bob := p.bob.session(t, p.key)
	req.Equal(domain.RoleInvitee, bob.Role)
	req.Equal(domain.Invited, bob.State)
	n := <-p.bob.notifications
	req.IsType(event.InvitationRequestReceived{}, n)
	req.Equal(p.group, n.(event.InvitationRequestReceived).Group)

	// And accepts it
	_, err = p.bob.dispatcher.Join(ctx, p.key)
	req.NoError(err)
	req.Equal(domain.Visible, p.bob.visibility(t, p.key))
	deliver(t, p.bob, p.alice)
	deliver(t, p.alice, p.bob)

	// Then both peers share the group
	req.Equal(domain.Joined, p.alice.session(t, p.key).State)
	req.Equal(domain.Joined, p.bob.session(t, p.key).State)
	req.Equal(domain.Shared, p.alice.visibility(t, p.key))
	req.Equal(domain.Shared, p.bob.visibility(t, p.key))
	req.NoError(p.bob.db.View(func(txn *badger.Txn) error {
		subscribed, err := p.bob.stores.Groups.IsSubscribed(txn, p.group.ID)
		req.True(subscribed)
		return err
	}))
	response := <-p.alice.notifications
	req.True(response.(event.InvitationResponseReceived).Accepted)
}

func TestDispatcher_DuplicateDelivery(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	p := newPair(t)
	_, err := p.alice.dispatcher.Invite(ctx, p.key, "", 1000, nil)
	req.NoError(err)
	invite := p.alice.drain(t)[0]

	// Given the same invite delivered concurrently many times
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.bob.dispatcher.Receive(ctx, invite)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// Then it is handled exactly once
	req.Equal(domain.Invited, p.bob.session(t, p.key).State)
	req.Len(p.bob.notifications, 1)
	req.Empty(p.bob.drain(t))
	req.NoError(p.bob.db.View(func(txn *badger.Txn) error {
		count, err := p.bob.stores.Messages.Count(txn, p.key.ContactGroupID)
		req.Equal(1, count.MessageCount)
		return err
	}))
	req.Zero(p.bob.dispatcher.locks.Len())
}

func TestDispatcher_ContractViolationRollsBack(t *testing.T) {
	req := require.New(t)
	p := newPair(t)

	// When Bob accepts an invite that was never received
	_, err := p.bob.dispatcher.Join(context.Background(), p.key)

	// Then nothing is stored or sent
	req.ErrorIs(err, errors.ErrProtocolState)
	req.NoError(p.bob.db.View(func(txn *badger.Txn) error {
		_, err := p.bob.stores.Sessions.Get(txn, p.key)
		req.ErrorIs(err, errors.ErrSessionNotFound)
		return nil
	}))
	req.Empty(p.bob.drain(t))
}

func TestDispatcher_UnknownContact(t *testing.T) {
	p := newPair(t)
	key := domain.SessionKey{ContactGroupID: domain.NewContactGroupID(), PrivateGroupID: p.group.ID}

	_, err := p.alice.dispatcher.Invite(context.Background(), key, "", 1000, nil)

	require.ErrorIs(t, err, errors.ErrContactNotFound)
}

func TestDispatcher_AbortSession(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	p := newPair(t)
	_, err := p.alice.dispatcher.Invite(ctx, p.key, "", 1000, nil)
	req.NoError(err)
	deliver(t, p.alice, p.bob)
	<-p.bob.notifications

	// When Bob receives garbage for the session
	s, err := p.bob.dispatcher.AbortSession(ctx, p.key, errors.ErrMalformedMessage)

	// Then the session fails and Alice is told
	req.NoError(err)
	req.Equal(domain.Error, s.State)
	req.IsType(event.SessionAborted{}, <-p.bob.notifications)
	deliver(t, p.bob, p.alice)
	req.Equal(domain.Error, p.alice.session(t, p.key).State)

	// And aborting again changes nothing
	again, err := p.bob.dispatcher.AbortSession(ctx, p.key, errors.ErrMalformedMessage)
	req.NoError(err)
	req.Equal(s, again)
	req.Empty(p.bob.drain(t))
}

func TestDispatcher_ReorderedLeaveAborts(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	p := newPair(t)
	_, err := p.alice.dispatcher.Invite(ctx, p.key, "", 1000, nil)
	req.NoError(err)
	deliver(t, p.alice, p.bob)

	// Given Bob accepting then leaving before Alice receives anything
	_, err = p.bob.dispatcher.Join(ctx, p.key)
	req.NoError(err)
	_, err = p.bob.dispatcher.Leave(ctx, p.key)
	req.NoError(err)
	sent := p.bob.drain(t)
	req.Len(sent, 2)

	// When the leave overtakes the join
	_, err = p.alice.dispatcher.Receive(ctx, sent[1])
	req.NoError(err)

	// Then the broken dependency aborts Alice's session
	req.Equal(domain.Error, p.alice.session(t, p.key).State)
}

func TestDispatcher_RoleFromGroupCreator(t *testing.T) {
	req := require.New(t)
	p := newPair(t)

	// Given a session never seen before on a group Alice created
	s, err := p.alice.dispatcher.Leave(context.Background(), p.key)

	// Then it is a creator session
	req.NoError(err)
	req.Equal(domain.RoleCreator, s.Role)
	req.Equal(domain.Start, s.State)
}

func TestDispatcher_EffectFailureRollsBack(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	p := newPair(t)
	groups := mocks.NewMockIGroupRepository(ctrl)
	stores := newStores(slog.Default())
	stores.Groups = groups
	dispatcher := NewDispatcher(p.alice.db, slog.Default(), p.alice.author, stores, nil, 1)

	groups.EXPECT().IsSubscribed(gomock.Any(), p.group.ID).Return(true, nil)
	groups.EXPECT().Get(gomock.Any(), p.group.ID).Return(p.group, nil)
	groups.EXPECT().SetVisibility(gomock.Any(), p.key, domain.Invisible).Return(badger.ErrTxnTooBig)

	// When a leave fails while hiding the group
	s, err := p.alice.dispatcher.Invite(context.Background(), p.key, "", 1000, nil)
	req.NoError(err)
	_, err = dispatcher.Leave(context.Background(), p.key)

	// Then the invite session is untouched and nothing is queued
	req.ErrorIs(err, badger.ErrTxnTooBig)
	req.Equal(s, p.alice.session(t, p.key))
	req.Len(p.alice.drain(t), 1)
}

func TestDispatcher_ConflictRetries(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	p := newPair(t)
	sessions := mocks.NewMockISessionRepository(ctrl)
	stores := newStores(slog.Default())
	stores.Sessions = sessions
	dispatcher := NewDispatcher(p.alice.db, slog.Default(), p.alice.author, stores, nil, 3)

	sessions.EXPECT().Get(gomock.Any(), p.key).Return(domain.Session{}, errors.ErrSessionNotFound).Times(3)
	sessions.EXPECT().Put(gomock.Any(), gomock.Any()).Return(badger.ErrConflict).Times(3)

	_, err := dispatcher.Invite(context.Background(), p.key, "", 1000, nil)

	req.ErrorIs(err, errors.ErrTooManyConflicts)
	req.Empty(p.alice.drain(t))
}
