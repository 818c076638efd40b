package testsupp

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/dusted-go/logging/prettylog"
	slogformatter "github.com/samber/slog-formatter"
)

// InitLog routes a test's log output through the same pretty handler
// the binary uses, on stderr so it interleaves with the test runner's
// own output.
func InitLog(t *testing.T) {
	t.Helper()

	funcHandler := slogformatter.NewFormatterHandler(
		slogformatter.FormatByType(func(s []string) slog.Value {
			return slog.StringValue(strings.Join(s, ","))
		}),
	)

	plHandler := prettylog.New(
		&slog.HandlerOptions{Level: slog.LevelDebug},
		prettylog.WithDestinationWriter(os.Stderr),
	)

	logger := slog.New(funcHandler(plHandler))
	slog.SetDefault(logger)
}
