package internal

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"private-groups/errors"

	"github.com/mr-tron/base58"
)

type Config struct {
	BadgerFilepath     string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
	IdentityName       string        `env:"IDENTITY_NAME,required=true"`
	IdentitySeed       string        `env:"IDENTITY_SEED,required=true"`
	BufferSize         int           `env:"BUFFER_SIZE,default=256"`
	SinkTimeout        time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	DispatchMaxRetries int           `env:"DISPATCH_MAX_RETRIES,default=5"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE,default=64"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL,default=500ms"`
	OutboxRatePerSec   float64       `env:"OUTBOX_RATE_PER_SECOND,default=50"`
	SpoolOutboundDir   string        `env:"SPOOL_OUTBOUND_DIR,required=true"`
	SpoolInboundDir    string        `env:"SPOOL_INBOUND_DIR,required=true"`
	MetricsAddr        string        `env:"METRICS_ADDR,default=:9464"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=5s"`
	// CensoredWords is a | separated list.
	CensoredWords   []string `env:"CENSORED_WORDS"`
	CharReplacement string   `env:"CHARACTER_REPLACEMENT,default=*"`
}

// IdentityKey decodes IDENTITY_SEED, a base58 encoded ed25519 seed.
func (c Config) IdentityKey() (ed25519.PrivateKey, error) {
	seed, err := base58.Decode(c.IdentitySeed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, errors.ErrInvalidSeed
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
