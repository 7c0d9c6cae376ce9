package redisstream

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.With(watermill.LogFields{"topic": "ting-in"}).Error("publish failed", errors.New("boom"), watermill.LogFields{"n": 1})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "error", line["level"])
	require.Equal(t, "publish failed", line["message"])
	require.Equal(t, "boom", line["error"])
	require.Equal(t, "ting-in", line["topic"])
	require.Equal(t, "watermill", line["component"])
}

func TestLogger_InfoIsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	l.Info("subscribing", nil)
	require.Empty(t, buf.String())
}
