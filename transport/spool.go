// Package transport moves encoded invitation messages between peers.
package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"private-groups/contract"
	"private-groups/domain"

	"golang.org/x/crypto/blake2b"
)

const spoolExt = ".msg"

// Spool is a directory of payloads, one sub directory per contact group.
// The sending peer writes into the directory the receiving peer reads from.
// Files are written under a temporary name then renamed, so a reader never
// sees a partial payload.
type Spool struct {
	root string
	log  *slog.Logger
	now  func() time.Time
}

var _ contract.Transport = (*Spool)(nil)

// Entry is one payload waiting in a spool.
type Entry struct {
	Path    string
	Payload []byte
}

func NewSpool(root string, log *slog.Logger) (*Spool, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("spool %s: %w", root, err)
	}
	return &Spool{root: root, log: log, now: time.Now}, nil
}

func (s *Spool) Deliver(ctx context.Context, contactGroupID domain.GroupID, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(s.root, contactGroupID.String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	sum := blake2b.Sum256(payload)
	name := fmt.Sprintf("%019d-%s%s", s.now().UnixNano(), hex.EncodeToString(sum[:8]), spoolExt)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

// Pending returns at most limit payloads, oldest first within a contact group.
func (s *Spool) Pending(limit int) ([]Entry, error) {
	groups, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, group := range groups {
		if !group.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, group.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && filepath.Ext(f.Name()) == spoolExt {
				names = append(names, f.Name())
			}
		}
		slices.Sort(names)
		for _, name := range names {
			if len(entries) >= limit {
				return entries, nil
			}
			path := filepath.Join(dir, name)
			payload, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{Path: path, Payload: payload})
		}
	}
	return entries, nil
}

func (s *Spool) Remove(e Entry) error {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
