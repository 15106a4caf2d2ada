package main

import (
	"fmt"
	"strconv"
	"time"

	"private-groups/domain"
	"private-groups/errors"
	"private-groups/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mr-tron/base58"
)

var header = []string{"Role", "State", "Contact", "Key", "Group", "Visibility", "Messages", "Unread", "Last activity"}

// row is one session as shown by the inspector.
type row struct {
	session    domain.Session
	contact    domain.Author
	group      string
	visibility domain.Visibility
	count      domain.GroupCount
}

// collect reads every session with the collaborator data shown next to it.
// Missing contacts or groups are shown empty rather than failing the report.
func collect(db *badger.DB, stores runtime.Stores) ([]row, error) {
	var rows []row
	err := db.View(func(txn *badger.Txn) error {
		sessions, err := stores.Sessions.List(txn)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			r := row{session: s}
			if r.contact, err = stores.Contacts.Get(txn, s.ContactGroupID); err != nil && !errors.Is(err, errors.ErrContactNotFound) {
				return err
			}
			g, err := stores.Groups.Get(txn, s.PrivateGroupID)
			switch {
			case err == nil:
				r.group = g.Name
			case !errors.Is(err, errors.ErrGroupNotFound):
				return err
			}
			if r.visibility, err = stores.Groups.Visibility(txn, s.Key()); err != nil {
				return err
			}
			if r.count, err = stores.Messages.Count(txn, s.ContactGroupID); err != nil {
				return err
			}
			rows = append(rows, r)
		}
		return nil
	})
	return rows, err
}

func (r row) cells(colours bool) []string {
	key := ""
	if len(r.contact.PublicKey) > 0 {
		key = base58.Encode(r.contact.PublicKey)
		if len(key) > 10 {
			key = key[:10]
		}
	}
	last := ""
	if r.count.LatestTimestamp > 0 {
		last = time.UnixMilli(r.count.LatestTimestamp).UTC().Format(time.DateTime)
	}
	return []string{
		r.session.Role.String(),
		stateCell(r.session.State, colours),
		r.contact.Name,
		key,
		fmt.Sprintf("%s (%s)", r.group, shortID(r.session.PrivateGroupID)),
		r.visibility.String(),
		strconv.Itoa(r.count.MessageCount),
		strconv.Itoa(r.count.UnreadCount),
		last,
	}
}

func stateCell(s domain.State, colours bool) string {
	if !colours {
		return s.String()
	}
	switch s {
	case domain.Joined:
		return color.FgGreen.Render(s.String())
	case domain.Error:
		return color.New(color.FgRed, color.OpBold).Render(s.String())
	case domain.Invited, domain.Accepted:
		return color.FgYellow.Render(s.String())
	default:
		return s.String()
	}
}

func shortID(id domain.GroupID) string {
	return id.String()[:8]
}
