package app

import (
	"log/slog"
	"os"
	"strconv"
)

// TestModeEnv disables process startup when set to a true value.
const TestModeEnv = "SOCIETYHUB_TEST_MODE"

// SkipStartup reports whether process should exit before dialling Postgres
// or Redis. The decision is logged so a stray flag in production is visible.
func SkipStartup(process string) bool {
	raw, ok := os.LookupEnv(TestModeEnv)
	if !ok {
		return false
	}
	skip, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("ignoring malformed test mode flag", slog.String("env", TestModeEnv), slog.String("value", raw))
		return false
	}
	if skip {
		slog.Info("test mode set, skipping startup", slog.String("process", process))
	}
	return skip
}
