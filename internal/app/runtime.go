package app

import (
	"os"
	"strconv"
)

// TestModeEnv makes cmd/console exit before touching redis or the backend.
const TestModeEnv = "CONSOLE_TEST_MODE"

// InTestMode reports whether TestModeEnv holds a true value as understood
// by strconv.ParseBool. Unparseable values count as false.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
