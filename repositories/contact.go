package repositories

import (
	"fmt"

	"private-groups/codec"
	"private-groups/contract"
	"private-groups/domain"
	"private-groups/errors"

	"github.com/dgraph-io/badger/v4"
)

// ContactRepository maps a contact group to the author on the other side.
type ContactRepository struct{}

var _ contract.IContactRepository = ContactRepository{}

func NewContactRepository() ContactRepository {
	return ContactRepository{}
}

func (ContactRepository) Add(txn *badger.Txn, contactGroupID domain.GroupID, a domain.Author) error {
	if contactGroupID.IsZero() {
		return fmt.Errorf("add contact %q: empty contact group", a.Name)
	}
	return txn.Set(contactKey(contactGroupID), codec.MarshalAuthor(a))
}

func (ContactRepository) Get(txn *badger.Txn, contactGroupID domain.GroupID) (domain.Author, error) {
	raw, err := get(txn, contactKey(contactGroupID), errors.ErrContactNotFound)
	if err != nil {
		return domain.Author{}, err
	}
	return codec.UnmarshalAuthor(raw)
}
