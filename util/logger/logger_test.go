package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"go-bpt/config"
)

func TestNew(t *testing.T) {
	l, err := New(config.NewLoggerConfig())
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, l.GetLevel())

	out := filepath.Join(t.TempDir(), "bpt.log")
	l, err = New(&config.LoggerConfig{Level: "debug", Format: "json", Output: out})
	require.NoError(t, err)
	l.WithField("page", 7).Debug("evicted")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"page":7`)
	require.Contains(t, string(raw), `"msg":"evicted"`)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&config.LoggerConfig{Level: "loud"})
	require.Error(t, err)

	_, err = New(&config.LoggerConfig{Level: "info", Format: "xml"})
	require.Error(t, err)
}
