package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup 設定全域 zerolog logger，pretty 用於本機開發
// extra 例如 kafka log writer，一律輸出 JSON
func Setup(level string, pretty bool, extra ...io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetLevel(level)
	log.Logger = New(os.Stdout, pretty, extra...)
}

func New(out io.Writer, pretty bool, extra ...io.Writer) zerolog.Logger {
	w := out
	if pretty {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if len(extra) > 0 {
		w = zerolog.MultiLevelWriter(append([]io.Writer{w}, extra...)...)
	}
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// SetLevel 無法解析時退回 info
func SetLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}
