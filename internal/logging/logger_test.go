package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger, err := New(tc.level, "console", "draw-guess")
			require.NoError(t, err)
			require.True(t, logger.Core().Enabled(tc.want))
			if tc.want > zapcore.DebugLevel {
				require.False(t, logger.Core().Enabled(tc.want-1))
			}
		})
	}
}
