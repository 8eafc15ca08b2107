package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv short-circuits the cmd mains when set to "1".
const TestModeEnv = "BACKOFFICE_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

func loadTestMode() {
	testMode.Store(os.Getenv(TestModeEnv) == "1")
}

// InTestMode reports whether the binaries should skip connecting to Postgres, Redis and the
// POS backend.
func InTestMode() bool {
	testModeOnce.Do(loadTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the environment.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	loadTestMode()
}
