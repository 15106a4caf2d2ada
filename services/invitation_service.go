package services

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"time"

	"private-groups/codec"
	"private-groups/domain"
	"private-groups/errors"
	"private-groups/runtime"
	"private-groups/validation"

	"github.com/dgraph-io/badger/v4"
)

// IInvitationService is the surface offered to the application layer.
type IInvitationService interface {
	CreateGroup(ctx context.Context, name string) (domain.PrivateGroup, error)
	AddContact(ctx context.Context, contactGroupID domain.GroupID, contact domain.Author) error
	SendInvitation(ctx context.Context, key domain.SessionKey, text string) (domain.Session, error)
	Accept(ctx context.Context, key domain.SessionKey) (domain.Session, error)
	Decline(ctx context.Context, key domain.SessionKey) (domain.Session, error)
	Leave(ctx context.Context, key domain.SessionKey) (domain.Session, error)
	MemberAdded(ctx context.Context, key domain.SessionKey) (domain.Session, error)
	ReceiveRaw(ctx context.Context, raw []byte) (domain.Session, error)
	Session(ctx context.Context, key domain.SessionKey) (domain.Session, error)
	Sessions(ctx context.Context) ([]domain.Session, error)
	Visibility(ctx context.Context, key domain.SessionKey) (domain.Visibility, error)
	Count(ctx context.Context, contactGroupID domain.GroupID) (domain.GroupCount, error)
	IsAnswerable(ctx context.Context, inviteID domain.MessageID) (bool, error)
}

// InvitationService signs outgoing invites with the local identity, validates
// incoming payloads and hands both to the dispatcher.
type InvitationService struct {
	db         *badger.DB
	log        *slog.Logger
	dispatcher *runtime.Dispatcher
	stores     runtime.Stores
	local      domain.Author
	key        ed25519.PrivateKey
	now        func() time.Time
}

var _ IInvitationService = (*InvitationService)(nil)

func NewInvitationService(db *badger.DB, log *slog.Logger, dispatcher *runtime.Dispatcher, stores runtime.Stores,
	key ed25519.PrivateKey, name string) *InvitationService {
	return &InvitationService{
		db:         db,
		log:        log,
		dispatcher: dispatcher,
		stores:     stores,
		local:      domain.NewAuthor(name, key.Public().(ed25519.PublicKey)),
		key:        key,
		now:        time.Now,
	}
}

func (s *InvitationService) WithClock(now func() time.Time) *InvitationService {
	s.now = now
	return s
}

func (s *InvitationService) Local() domain.Author { return s.local }

// CreateGroup creates a private group owned by the local identity and
// subscribes to it.
func (s *InvitationService) CreateGroup(_ context.Context, name string) (domain.PrivateGroup, error) {
	if err := validation.ValidateGroupName(name); err != nil {
		return domain.PrivateGroup{}, err
	}
	salt, err := domain.NewSalt()
	if err != nil {
		return domain.PrivateGroup{}, err
	}
	g := domain.NewPrivateGroup(name, s.local, salt)
	if err = s.db.Update(func(txn *badger.Txn) error { return s.stores.Groups.Subscribe(txn, g) }); err != nil {
		return domain.PrivateGroup{}, fmt.Errorf("create group %q: %w", name, err)
	}
	s.log.Info("Private group created", "private_group", g.ID, "name", name)
	return g, nil
}

// AddContact binds a contact to the contact group carrying its messages.
func (s *InvitationService) AddContact(_ context.Context, contactGroupID domain.GroupID, contact domain.Author) error {
	if err := validation.ValidateAuthorName(contact.Name); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.stores.Contacts.Add(txn, contactGroupID, contact)
	})
}

// SendInvitation invites the contact of the session to the private group.
// The timestamp is the wall clock, pushed past the session clock when the
// wall clock lags behind it.
func (s *InvitationService) SendInvitation(ctx context.Context, key domain.SessionKey, text string) (domain.Session, error) {
	if err := validation.ValidateInviteText(text); err != nil {
		return domain.Session{}, err
	}
	timestamp := s.now().UnixMilli()
	current, err := s.Session(ctx, key)
	switch {
	case err == nil:
		timestamp = max(timestamp, current.LocalTimestamp+1, current.InviteTimestamp+1)
	case !errors.Is(err, errors.ErrSessionNotFound):
		return domain.Session{}, err
	}
	signature := validation.SignInvite(s.key, key.ContactGroupID, key.PrivateGroupID, timestamp)
	return s.dispatcher.Invite(ctx, key, text, timestamp, signature)
}

func (s *InvitationService) Accept(ctx context.Context, key domain.SessionKey) (domain.Session, error) {
	return s.dispatcher.Join(ctx, key)
}

// Decline answers a pending invite negatively.
func (s *InvitationService) Decline(ctx context.Context, key domain.SessionKey) (domain.Session, error) {
	return s.dispatcher.Leave(ctx, key)
}

// Leave leaves a joined group, or dissolves it when the local peer created it.
func (s *InvitationService) Leave(ctx context.Context, key domain.SessionKey) (domain.Session, error) {
	return s.dispatcher.Leave(ctx, key)
}

func (s *InvitationService) MemberAdded(ctx context.Context, key domain.SessionKey) (domain.Session, error) {
	return s.dispatcher.MemberAdded(ctx, key)
}

// ReceiveRaw handles a payload received from a contact.
// A payload whose header cannot be read names no session and is dropped with
// an error. Otherwise a payload failing validation aborts its session.
func (s *InvitationService) ReceiveRaw(ctx context.Context, raw []byte) (domain.Session, error) {
	m, err := validation.Parse(raw)
	if err == nil {
		return s.dispatcher.Receive(ctx, m)
	}
	header, headerErr := codec.DecodeHeader(raw)
	if headerErr != nil {
		s.log.Warn("Undecodable payload dropped", "error", err)
		return domain.Session{}, err
	}
	return s.dispatcher.AbortSession(ctx, header.SessionKey(), err)
}

func (s *InvitationService) Session(_ context.Context, key domain.SessionKey) (domain.Session, error) {
	var session domain.Session
	err := s.db.View(func(txn *badger.Txn) (err error) {
		session, err = s.stores.Sessions.Get(txn, key)
		return err
	})
	return session, err
}

func (s *InvitationService) Sessions(_ context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	err := s.db.View(func(txn *badger.Txn) (err error) {
		sessions, err = s.stores.Sessions.List(txn)
		return err
	})
	return sessions, err
}

func (s *InvitationService) Visibility(_ context.Context, key domain.SessionKey) (domain.Visibility, error) {
	var v domain.Visibility
	err := s.db.View(func(txn *badger.Txn) (err error) {
		v, err = s.stores.Groups.Visibility(txn, key)
		return err
	})
	return v, err
}

func (s *InvitationService) Count(_ context.Context, contactGroupID domain.GroupID) (domain.GroupCount, error) {
	var c domain.GroupCount
	err := s.db.View(func(txn *badger.Txn) (err error) {
		c, err = s.stores.Messages.Count(txn, contactGroupID)
		return err
	})
	return c, err
}

// IsAnswerable reports whether a received invite still accepts a response.
func (s *InvitationService) IsAnswerable(_ context.Context, inviteID domain.MessageID) (bool, error) {
	var ok bool
	err := s.db.View(func(txn *badger.Txn) (err error) {
		ok, err = s.stores.Messages.IsAnswerable(txn, inviteID)
		return err
	})
	return ok, err
}
