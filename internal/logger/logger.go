package logger

import (
    "io"
    "os"
    "strings"

    "github.com/rs/zerolog"
)

// New constructs a zerolog logger for the runtime environment. Development
// environments get human readable console logs, everything else emits JSON.
func New(env, level string) zerolog.Logger {
    lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
    if err != nil || lvl == zerolog.NoLevel {
        lvl = zerolog.InfoLevel
    }

    var output io.Writer = os.Stdout
    if strings.EqualFold(env, "development") || strings.EqualFold(env, "dev") {
        output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
    }

    return zerolog.New(output).With().Timestamp().Logger().Level(lvl)
}
