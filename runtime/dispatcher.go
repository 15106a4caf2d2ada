package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"private-groups/contract"
	"private-groups/domain"
	"private-groups/domain/event"
	"private-groups/engine"
	"private-groups/errors"
	"private-groups/observability"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// Stores groups the collaborators a transition is committed through.
type Stores struct {
	Sessions contract.ISessionRepository
	Messages contract.IMessageRepository
	Groups   contract.IGroupRepository
	Contacts contract.IContactRepository
	Outbox   contract.IOutboxRepository
}

// Dispatcher routes local actions and remote messages to the engine of their
// session. Each event is handled in one badger transaction:
//  1. load or implicitly create the session
//  2. resolve the engine environment
//  3. run the transition
//  4. store the sent message, enqueue it, apply effects and replace the session
//
// Any failure rolls the whole transaction back. Notifications are published
// only once the transaction is committed. Events of the same session are
// serialized in process by a KeyedMutex; write conflicts with other sessions
// are retried a bounded number of times.
type Dispatcher struct {
	db            *badger.DB
	log           *slog.Logger
	local         domain.Author
	stores        Stores
	locks         *KeyedMutex
	notifications chan<- event.Notification
	metrics       *observability.Metrics
	now           func() time.Time
	maxRetries    int
}

func NewDispatcher(db *badger.DB, log *slog.Logger, local domain.Author, stores Stores,
	notifications chan<- event.Notification, maxRetries int) *Dispatcher {
	return &Dispatcher{
		db:            db,
		log:           log,
		local:         local,
		stores:        stores,
		locks:         NewKeyedMutex(),
		notifications: notifications,
		now:           time.Now,
		maxRetries:    max(maxRetries, 1),
	}
}

func (d *Dispatcher) WithMetrics(metrics *observability.Metrics) *Dispatcher {
	d.metrics = metrics
	return d
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// step runs one engine operation inside the transaction.
type step func(txn *badger.Txn, e engine.Engine, s domain.Session, env engine.Env) (engine.Transition, error)

// Invite sends an invite as creator. The signature covers the invite token
// and is produced by the caller, who owns the private key.
func (d *Dispatcher) Invite(ctx context.Context, key domain.SessionKey, text string, timestamp int64, signature []byte) (domain.Session, error) {
	return d.dispatch(ctx, key, lo.ToPtr(domain.RoleCreator), func(_ *badger.Txn, e engine.Engine, s domain.Session, env engine.Env) (engine.Transition, error) {
		return e.OnInviteAction(s, env, text, timestamp, signature)
	})
}

func (d *Dispatcher) Join(ctx context.Context, key domain.SessionKey) (domain.Session, error) {
	return d.dispatch(ctx, key, nil, func(_ *badger.Txn, e engine.Engine, s domain.Session, env engine.Env) (engine.Transition, error) {
		return e.OnJoinAction(s, env)
	})
}

// Leave declines a pending invite or leaves the group, depending on the state.
func (d *Dispatcher) Leave(ctx context.Context, key domain.SessionKey) (domain.Session, error) {
	return d.dispatch(ctx, key, nil, func(_ *badger.Txn, e engine.Engine, s domain.Session, env engine.Env) (engine.Transition, error) {
		return e.OnLeaveAction(s, env)
	})
}

func (d *Dispatcher) MemberAdded(ctx context.Context, key domain.SessionKey) (domain.Session, error) {
	return d.dispatch(ctx, key, nil, func(_ *badger.Txn, e engine.Engine, s domain.Session, env engine.Env) (engine.Transition, error) {
		return e.OnMemberAddedAction(s, env)
	})
}

// Receive handles a decoded remote message. A message already stored is a
// duplicate delivery and leaves the session unchanged.
func (d *Dispatcher) Receive(ctx context.Context, m domain.Message) (domain.Session, error) {
	var hint *domain.Role
	if m.Type() == domain.InviteType {
		hint = lo.ToPtr(domain.RoleInvitee)
	}
	return d.dispatch(ctx, m.Header().SessionKey(), hint, func(txn *badger.Txn, e engine.Engine, s domain.Session, env engine.Env) (engine.Transition, error) {
		stored, err := d.stores.Messages.Store(txn, m, false)
		if err != nil {
			return engine.Transition{}, err
		}
		if !stored {
			d.metrics.Duplicate()
			d.log.Debug("Duplicate message absorbed", "message", m.Header().ID, "type", m.Type())
			return engine.Transition{Session: s}, nil
		}
		d.metrics.Received(m.Type())
		return receive(e, s, env, m), nil
	})
}

// AbortSession runs the abort procedure on a session whose remote input could
// not be decoded or validated.
func (d *Dispatcher) AbortSession(ctx context.Context, key domain.SessionKey, cause error) (domain.Session, error) {
	return d.dispatch(ctx, key, nil, func(_ *badger.Txn, _ engine.Engine, s domain.Session, env engine.Env) (engine.Transition, error) {
		d.log.Warn("Aborting session on invalid input", "session", key, "state", s.State, "cause", cause)
		return engine.Abort(s, env), nil
	})
}

func receive(e engine.Engine, s domain.Session, env engine.Env, m domain.Message) engine.Transition {
	switch v := m.(type) {
	case domain.InviteMessage:
		return e.OnInviteMessage(s, env, v)
	case domain.JoinMessage:
		return e.OnJoinMessage(s, env, v)
	case domain.LeaveMessage:
		return e.OnLeaveMessage(s, env, v)
	case domain.AbortMessage:
		return e.OnAbortMessage(s, env, v)
	default:
		return engine.Abort(s, env)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, key domain.SessionKey, hint *domain.Role, run step) (domain.Session, error) {
	unlock := d.locks.Lock(key)
	defer unlock()

	var (
		before domain.Session
		tr     engine.Transition
	)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Session{}, err
		}
		err := d.db.Update(func(txn *badger.Txn) error {
			s, err := d.load(txn, key, hint)
			if err != nil {
				return err
			}
			env, err := d.env(txn, s)
			if err != nil {
				return err
			}
			next, err := run(txn, engine.ForRole(s.Role), s, env)
			if err != nil {
				return err
			}
			if err = d.commit(txn, next); err != nil {
				return err
			}
			before, tr = s, next
			return nil
		})
		if err == nil {
			break
		}
		if !errors.Is(err, badger.ErrConflict) {
			return domain.Session{}, err
		}
		d.metrics.Conflict()
		if attempt >= d.maxRetries {
			return domain.Session{}, fmt.Errorf("%w: session %s after %d attempts", errors.ErrTooManyConflicts, key, attempt)
		}
		d.log.Debug("Transaction conflict, retrying", "session", key, "attempt", attempt)
	}

	d.observe(before, tr)
	d.publish(ctx, tr.Notifications)
	return tr.Session, nil
}

// load returns the stored session, or a new START session whose role is the
// hint when given. Without hint the local peer is creator only of the groups
// it created itself.
func (d *Dispatcher) load(txn *badger.Txn, key domain.SessionKey, hint *domain.Role) (domain.Session, error) {
	s, err := d.stores.Sessions.Get(txn, key)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, errors.ErrSessionNotFound) {
		return domain.Session{}, err
	}
	if hint != nil {
		return domain.NewSession(*hint, key), nil
	}
	role := domain.RoleInvitee
	g, err := d.stores.Groups.Get(txn, key.PrivateGroupID)
	switch {
	case err == nil && g.Creator.ID == d.local.ID:
		role = domain.RoleCreator
	case err != nil && !errors.Is(err, errors.ErrGroupNotFound):
		return domain.Session{}, err
	}
	return domain.NewSession(role, key), nil
}

func (d *Dispatcher) env(txn *badger.Txn, s domain.Session) (engine.Env, error) {
	contact, err := d.stores.Contacts.Get(txn, s.ContactGroupID)
	if err != nil {
		return engine.Env{}, fmt.Errorf("contact group %s: %w", s.ContactGroupID, err)
	}
	subscribed, err := d.stores.Groups.IsSubscribed(txn, s.PrivateGroupID)
	if err != nil {
		return engine.Env{}, err
	}
	env := engine.Env{
		Now:        d.now().UnixMilli(),
		Contact:    contact,
		Subscribed: subscribed,
	}
	g, err := d.stores.Groups.Get(txn, s.PrivateGroupID)
	switch {
	case err == nil:
		env.Group = &g
	case !errors.Is(err, errors.ErrGroupNotFound):
		return engine.Env{}, err
	}
	return env, nil
}

func (d *Dispatcher) commit(txn *badger.Txn, tr engine.Transition) error {
	if tr.Sent != nil {
		if _, err := d.stores.Messages.Store(txn, tr.Sent, true); err != nil {
			return fmt.Errorf("store sent %s: %w", tr.Sent.Type(), err)
		}
		if err := d.stores.Outbox.Enqueue(txn, tr.Sent); err != nil {
			return fmt.Errorf("enqueue %s: %w", tr.Sent.Type(), err)
		}
	}
	for _, effect := range tr.Effects {
		if err := d.apply(txn, effect); err != nil {
			return fmt.Errorf("apply %T: %w", effect, err)
		}
	}
	return d.stores.Sessions.Put(txn, tr.Session)
}

func (d *Dispatcher) apply(txn *badger.Txn, effect engine.Effect) error {
	switch e := effect.(type) {
	case engine.SetVisibility:
		return d.stores.Groups.SetVisibility(txn, e.Key, e.Visibility)
	case engine.StoreGroup:
		return d.stores.Groups.Add(txn, e.Group)
	case engine.Subscribe:
		return d.stores.Groups.Subscribe(txn, e.Group)
	case engine.MarkDissolved:
		return d.stores.Groups.MarkDissolved(txn, e.PrivateGroupID)
	case engine.MarkAnswerable:
		return d.stores.Messages.SetAnswerable(txn, e.MessageID, e.Answerable)
	case engine.MarkVisibleInUI:
		return d.stores.Messages.SetVisibleInUI(txn, e.MessageID, e.Visible)
	case engine.MarkInvitesUnanswerable:
		return d.stores.Messages.MarkInvitesUnanswerable(txn, e.Key)
	case engine.TrackMessage:
		return d.stores.Messages.Track(txn, e.ContactGroupID, e.Timestamp, e.Read)
	default:
		return fmt.Errorf("unknown effect %T", effect)
	}
}

func (d *Dispatcher) observe(before domain.Session, tr engine.Transition) {
	after := tr.Session
	d.metrics.Transition(after.Role, before.State, after.State)
	if tr.Sent != nil {
		d.metrics.Sent(tr.Sent.Type())
	}
	if before.State == after.State {
		return
	}
	d.log.Info("Session transition",
		"contact_group", after.ContactGroupID,
		"private_group", after.PrivateGroupID,
		"role", after.Role,
		"from", before.State,
		"to", after.State,
	)
}

// publish hands notifications to the fan-out worker. The transition is
// already committed: a canceled context only drops notifications.
func (d *Dispatcher) publish(ctx context.Context, notifications []event.Notification) {
	if d.notifications == nil {
		return
	}
	for _, n := range notifications {
		select {
		case d.notifications <- n:
		case <-ctx.Done():
			d.log.Warn("Notification dropped", "type", n.Type(), "session", n.SessionKey())
			return
		}
	}
}
