package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLevel(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
	} {
		logger, err := New(&bytes.Buffer{}, tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, logger.GetLevel(), tc.in)
	}

	_, err := New(&bytes.Buffer{}, "chatty")
	require.Error(t, err)
}

func TestNewWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info")
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Int("pieces", 4).Msg("tablebase generated")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "tablebase generated")
	require.Contains(t, out, "pieces=")
	require.Contains(t, out, "logx_test.go:")
}

func TestShortCaller(t *testing.T) {
	got := shortCaller(0, "/src/egtb/internal/tablebase/set.go", 42)
	require.Len(t, got, 28)
	require.Equal(t, "set.go:42", strings.TrimSpace(got))
}
