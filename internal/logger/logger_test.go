package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesTypedFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.InfoLevel)

	log.Info("loaded prices",
		String("source", "yahoo"),
		Int("rows", 42),
		Float("tc_bps", 5),
		Strings("tickers", []string{"AAPL", "MSFT"}),
		Error(errors.New("boom")),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded prices", entry["message"])
	assert.Equal(t, "yahoo", entry["source"])
	assert.Equal(t, float64(42), entry["rows"])
	assert.Equal(t, float64(5), entry["tc_bps"])
	assert.Equal(t, "AAPL,MSFT", entry["tickers"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Info("hidden")
	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.With(String("stage", "weights")).Warn("shown", Duration("took", time.Second))
	assert.Contains(t, buf.String(), `"stage":"weights"`)
	assert.Contains(t, buf.String(), `"shown"`)
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stderr"})
	assert.Error(t, err)
}
