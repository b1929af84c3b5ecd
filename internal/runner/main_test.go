package runner

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// The runner fans cases out through an errgroup; nothing it starts may
	// outlive Run.
	goleak.VerifyTestMain(m)
}
