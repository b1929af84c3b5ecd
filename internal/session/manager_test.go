package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(newTestStore(t), zap.NewNop())
}

func TestRestoreMissingSession(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Restore(context.Background(), "never-saved")
	require.Error(t, err)
	assert.ErrorIs(t, err, verr.ErrSessionNotFound)
}

func TestRestoreDeadEndpoint(t *testing.T) {
	m := newTestManager(t)

	// Port 1 is never a CDP endpoint; the dial fails immediately.
	info := sampleInfo("stale")
	info.CDPURL = "ws://127.0.0.1:1/devtools/browser/dead"
	require.NoError(t, m.Store().Save(info))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := m.Restore(ctx, "stale")
	require.Error(t, err)
	assert.True(t, verr.IsKind(err, verr.KindSession))
	assert.NotErrorIs(t, err, verr.ErrSessionNotFound,
		"an unreachable endpoint is a connection failure, not a missing session")
}

func TestValidate(t *testing.T) {
	m := newTestManager(t)

	t.Run("false when file is absent", func(t *testing.T) {
		assert.False(t, m.Validate(context.Background(), "ghost"))
	})

	t.Run("false when endpoint is unreachable", func(t *testing.T) {
		info := sampleInfo("unreachable")
		info.CDPURL = "ws://127.0.0.1:1/devtools/browser/dead"
		require.NoError(t, m.Store().Save(info))

		assert.False(t, m.Validate(context.Background(), "unreachable"))
	})
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	h := &Handle{}
	h.Close()
	h.Close()
}
