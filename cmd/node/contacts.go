package main

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"private-groups/domain"

	"github.com/mr-tron/base58"
)

// contact is one -contact flag: name=<base58 public key>@<contact group id>.
type contact struct {
	groupID domain.GroupID
	author  domain.Author
}

type contactFlags []contact

func (c *contactFlags) String() string {
	names := make([]string, 0, len(*c))
	for _, ct := range *c {
		names = append(names, ct.author.Name)
	}
	return strings.Join(names, ",")
}

func (c *contactFlags) Set(raw string) error {
	ct, err := parseContact(raw)
	if err != nil {
		return err
	}
	*c = append(*c, ct)
	return nil
}

func parseContact(raw string) (contact, error) {
	name, rest, ok := strings.Cut(raw, "=")
	if !ok || name == "" {
		return contact{}, fmt.Errorf("contact %q: expected name=key@group", raw)
	}
	encodedKey, group, ok := strings.Cut(rest, "@")
	if !ok {
		return contact{}, fmt.Errorf("contact %q: expected name=key@group", raw)
	}
	key, err := base58.Decode(encodedKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return contact{}, fmt.Errorf("contact %q: public key must be base58 encoded ed25519", raw)
	}
	groupID, err := domain.ParseGroupID(group)
	if err != nil {
		return contact{}, fmt.Errorf("contact %q: %w", raw, err)
	}
	return contact{groupID: groupID, author: domain.NewAuthor(name, ed25519.PublicKey(key))}, nil
}
