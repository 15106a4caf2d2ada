package main

import (
	"bytes"
	"crypto/ed25519"
	"log/slog"
	"testing"

	"private-groups/domain"
	"private-groups/repositories"
	"private-groups/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	stores := runtime.Stores{
		Sessions: repositories.NewSessionRepository(log),
		Messages: repositories.NewMessageRepository(log),
		Groups:   repositories.NewGroupRepository(log),
		Contacts: repositories.NewContactRepository(),
		Outbox:   repositories.NewOutboxRepository(log),
	}

	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{6}, ed25519.SeedSize))
	contact := domain.NewAuthor("bob", key.Public().(ed25519.PublicKey))
	group := domain.NewPrivateGroup("book club", contact, domain.Salt{})
	known := domain.NewSession(domain.RoleInvitee, domain.SessionKey{ContactGroupID: domain.NewContactGroupID(), PrivateGroupID: group.ID})
	known.State = domain.Joined
	orphan := domain.NewSession(domain.RoleCreator, domain.SessionKey{ContactGroupID: domain.NewContactGroupID(), PrivateGroupID: domain.NewContactGroupID()})

	// Given one session with its contact and group known, and one without
	req.NoError(db.Update(func(txn *badger.Txn) error {
		if err := stores.Contacts.Add(txn, known.ContactGroupID, contact); err != nil {
			return err
		}
		if err := stores.Groups.Add(txn, group); err != nil {
			return err
		}
		if err := stores.Groups.SetVisibility(txn, known.Key(), domain.Shared); err != nil {
			return err
		}
		if err := stores.Messages.Track(txn, known.ContactGroupID, 1000, false); err != nil {
			return err
		}
		if err := stores.Sessions.Put(txn, known); err != nil {
			return err
		}
		return stores.Sessions.Put(txn, orphan)
	}))

	// When the report is collected
	rows, err := collect(db, stores)
	req.NoError(err)
	req.Len(rows, 2)

	// Then both rows render, the orphan with empty columns
	for _, r := range rows {
		cells := r.cells(false)
		req.Len(cells, len(header))
		if r.session.Key() == known.Key() {
			req.Equal([]string{"INVITEE", "JOINED", "bob"}, cells[:3])
			req.Equal("SHARED", cells[5])
			req.Equal("1", cells[6])
			req.Equal("1", cells[7])
		} else {
			req.Empty(cells[2])
			req.Equal("INVISIBLE", cells[5])
			req.Equal("0", cells[6])
		}
	}
}
