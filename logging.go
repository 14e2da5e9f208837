package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// newLogger builds the console logger used by the agent. Unknown levels fall back to info.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stdout
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: w != os.Stdout}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// whatsmeowLogger routes a whatsmeow module's logs into the agent's logger.
// The library is chatty at info, so it only gets warnings and up unless debugging.
func whatsmeowLogger(log zerolog.Logger, module string) waLog.Logger {
	sub := log.With().Str("module", module).Logger()
	if log.GetLevel() > zerolog.DebugLevel {
		sub = sub.Level(zerolog.WarnLevel)
	}
	return waLog.Zerolog(sub)
}
