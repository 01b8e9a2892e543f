package config

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// LevelWire sits below slog.LevelDebug, leaving room for raw
// frame-and-request dumps that would drown a normal debug stream.
const LevelWire = slog.Level(-8)

var levelNames = map[string]slog.Level{
	"wire":  LevelWire,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Level parses a level name from the config file, case-insensitively.
// The empty string means info.
func Level(name string) (slog.Level, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return slog.LevelInfo, nil
	}
	level, ok := levelNames[key]
	if !ok {
		valid := make([]string, 0, len(levelNames))
		for k := range levelNames {
			valid = append(valid, k)
		}
		sort.Strings(valid)
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: %s)", name, strings.Join(valid, ", "))
	}
	return level, nil
}

// NewLogger builds the SDK's text logger at the given level. Records
// at LevelWire are labeled WIRE instead of slog's DEBUG-4.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelWire {
					a.Value = slog.StringValue("WIRE")
				}
			}
			return a
		},
	}))
}
