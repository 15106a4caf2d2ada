package internal

import (
	"bytes"
	"crypto/ed25519"
	"testing"
	"time"

	"private-groups/errors"

	"github.com/Netflix/go-env"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func TestConfig_FromEnviron(t *testing.T) {
	req := require.New(t)
	seed := base58.Encode(bytes.Repeat([]byte{5}, ed25519.SeedSize))

	// Given only the required keys and a censored word list
	es := env.EnvSet{
		"BADGER_FILEPATH":    "/tmp/node",
		"IDENTITY_NAME":      "alice",
		"IDENTITY_SEED":      seed,
		"SPOOL_OUTBOUND_DIR": "/tmp/out",
		"SPOOL_INBOUND_DIR":  "/tmp/in",
		"CENSORED_WORDS":     "scam|casino",
	}

	var config Config
	err := env.Unmarshal(es, &config)

	// Then defaults fill the rest
	req.NoError(err)
	req.Equal("INFO", config.LogLevel)
	req.Equal(500*time.Millisecond, config.OutboxPollInterval)
	req.Equal(5, config.DispatchMaxRetries)
	req.Equal([]string{"scam", "casino"}, config.CensoredWords)

	key, err := config.IdentityKey()
	req.NoError(err)
	req.Equal(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{5}, ed25519.SeedSize)), key)
}

func TestConfig_MissingRequired(t *testing.T) {
	var config Config
	err := env.Unmarshal(env.EnvSet{"BADGER_FILEPATH": "/tmp/node"}, &config)
	require.Error(t, err)
}

func TestConfig_IdentityKey_Invalid(t *testing.T) {
	req := require.New(t)

	for _, seed := range []string{"", "0OIl", base58.Encode([]byte("too short"))} {
		_, err := Config{IdentitySeed: seed}.IdentityKey()
		req.ErrorIs(err, errors.ErrInvalidSeed)
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)
}
