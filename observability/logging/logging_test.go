package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerRenamesKeysAndMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo))
	logger.Debug("hidden")
	logger.Warn("auth failed", "authorization", "Bearer abc", "pool", "zd-usd")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "WARN", line["severity"])
	require.Equal(t, "auth failed", line["message"])
	require.Contains(t, line, "timestamp")
	require.Equal(t, RedactedValue, line["authorization"])
	require.Equal(t, "zd-usd", line["pool"])
}

func TestMaskHelpers(t *testing.T) {
	require.Equal(t, "", MaskValue("  "))
	require.Equal(t, RedactedValue, MaskValue("x"))
	require.Equal(t, "visible", MaskField("pool", "visible").Value.String())
	require.Equal(t, RedactedValue, MaskField("Token", "abc").Value.String())
	require.Equal(t, []string{"authorization", "jwt", "password", "secret", "token"}, SensitiveKeys())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetupWithFileRotates(t *testing.T) {
	path := t.TempDir() + "/ammd.log"
	logger, closer := SetupWithFile("ammd", "test", slog.LevelInfo, FileOptions{Path: path, MaxSizeMB: 1})
	t.Cleanup(func() { _ = closer.Close() })
	logger.Info("hello")
	require.FileExists(t, path)
}
