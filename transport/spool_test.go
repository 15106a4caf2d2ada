package transport

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"private-groups/domain"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestSpool_DeliverThenPending(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	spool, err := NewSpool(t.TempDir(), log)
	req.NoError(err)
	tick := int64(0)
	spool.now = func() time.Time { tick++; return time.Unix(0, tick) }
	cg := domain.NewContactGroupID()

	// Given three payloads delivered in order
	for _, p := range []string{"first", "second", "third"} {
		req.NoError(spool.Deliver(context.Background(), cg, []byte(p)))
	}

	// When two of them are read
	entries, err := spool.Pending(2)

	// Then the oldest come first
	req.NoError(err)
	req.Len(entries, 2)
	req.Equal("first", string(entries[0].Payload))
	req.Equal("second", string(entries[1].Payload))

	// And a removed entry is not returned again
	req.NoError(spool.Remove(entries[0]))
	req.NoError(spool.Remove(entries[0]))
	entries, err = spool.Pending(10)
	req.NoError(err)
	req.Len(entries, 2)
	req.Equal("second", string(entries[0].Payload))
}

func TestSpool_IgnoresTemporaryFiles(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	spool, err := NewSpool(root, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	// Given a write interrupted before its rename
	dir := filepath.Join(root, domain.NewContactGroupID().String())
	req.NoError(os.MkdirAll(dir, 0o700))
	req.NoError(os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o600))

	entries, err := spool.Pending(10)

	req.NoError(err)
	req.Empty(entries)
}

func TestSpool_CanceledContext(t *testing.T) {
	spool, err := NewSpool(t.TempDir(), logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, spool.Deliver(ctx, domain.NewContactGroupID(), []byte("x")), context.Canceled)
}
