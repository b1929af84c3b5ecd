package verr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRendering(t *testing.T) {
	t.Run("includes kind, message and sorted context", func(t *testing.T) {
		err := New(KindSession, "cannot attach").
			With("name", "login-flow").
			With("cdp_url", "ws://127.0.0.1:9222")

		msg := err.Error()
		assert.Contains(t, msg, "session: cannot attach")
		// Context keys render alphabetically, so cdp_url precedes name.
		assert.Contains(t, msg, "(cdp_url=ws://127.0.0.1:9222, name=login-flow)")
	})

	t.Run("renders cause after context", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Session("endpoint unreachable", cause)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestCausePreservation(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := Timeout("click", cause)

	require.ErrorIs(t, err, cause, "the original error must survive wrapping")

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.Equal(t, "click", fe.Context["operation"])
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("running case: %w", ElementNotFound("css=#missing", nil))

	assert.True(t, IsKind(err, KindElementNotFound))
	assert.False(t, IsKind(err, KindTimeout))
	assert.False(t, IsKind(errors.New("plain"), KindElementNotFound))
}

func TestSessionNotFoundSentinel(t *testing.T) {
	err := Session("no file for name", ErrSessionNotFound)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
