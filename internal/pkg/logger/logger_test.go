package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	assert.Equal(t, zerolog.DebugLevel, SetLevel("debug"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Equal(t, zerolog.InfoLevel, SetLevel("nonsense"))
	assert.Equal(t, zerolog.InfoLevel, SetLevel(""))
}

func TestNewTeesToExtraWriters(t *testing.T) {
	var out, shipped bytes.Buffer
	l := New(&out, false, &shipped)
	l.Info().Int64("order_id", 9).Msg("order confirmed")

	assert.Contains(t, out.String(), `"order_id":9`)
	assert.Equal(t, out.String(), shipped.String())
}

func TestNewPrettyKeepsExtraAsJSON(t *testing.T) {
	var out, shipped bytes.Buffer
	l := New(&out, true, &shipped)
	l.Warn().Msg("stock low")

	assert.NotContains(t, out.String(), `"message"`)
	assert.Contains(t, shipped.String(), `"message":"stock low"`)
}
