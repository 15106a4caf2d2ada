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

// GroupRepository is the local view of private groups: metadata, membership
// of the local peer and visibility to each contact.
type GroupRepository struct {
	log *slog.Logger
}

var _ contract.IGroupRepository = GroupRepository{}

func NewGroupRepository(log *slog.Logger) GroupRepository {
	return GroupRepository{log: log}
}

func (r GroupRepository) Get(txn *badger.Txn, id domain.GroupID) (domain.PrivateGroup, error) {
	raw, err := get(txn, groupKey(id), errors.ErrGroupNotFound)
	if err != nil {
		return domain.PrivateGroup{}, err
	}
	g, err := codec.UnmarshalGroup(raw)
	if err != nil {
		return domain.PrivateGroup{}, fmt.Errorf("group %s: %w", id, err)
	}
	return g, nil
}

func (r GroupRepository) Add(txn *badger.Txn, g domain.PrivateGroup) error {
	if g.ID != domain.DerivePrivateGroupID(g.Name, g.Creator.ID, g.Salt) {
		return fmt.Errorf("%w: group id does not match its fields", errors.ErrInvalidMessage)
	}
	return txn.Set(groupKey(g.ID), codec.MarshalGroup(g))
}

func (r GroupRepository) Subscribe(txn *badger.Txn, g domain.PrivateGroup) error {
	if err := r.Add(txn, g); err != nil {
		return err
	}
	r.log.Debug("Subscribed to group", "private_group", g.ID, "name", g.Name)
	return txn.Set(memberKey(g.ID), nil)
}

func (r GroupRepository) IsSubscribed(txn *badger.Txn, id domain.GroupID) (bool, error) {
	return exists(txn, memberKey(id))
}

func (r GroupRepository) MarkDissolved(txn *badger.Txn, id domain.GroupID) error {
	return txn.Set(dissolvedKey(id), nil)
}

func (r GroupRepository) IsDissolved(txn *badger.Txn, id domain.GroupID) (bool, error) {
	return exists(txn, dissolvedKey(id))
}

func (r GroupRepository) SetVisibility(txn *badger.Txn, key domain.SessionKey, v domain.Visibility) error {
	return txn.Set(visibilityKey(key), []byte{byte(v)})
}

// Visibility defaults to INVISIBLE for a pair never shared.
func (r GroupRepository) Visibility(txn *badger.Txn, key domain.SessionKey) (domain.Visibility, error) {
	raw, err := get(txn, visibilityKey(key), nil)
	if err != nil || len(raw) == 0 {
		return domain.Invisible, err
	}
	return domain.Visibility(raw[0]), nil
}
