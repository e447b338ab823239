package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func setupAsyncLoggerTest(t *testing.T) (string, func()) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "async-logger-test-*")
	require.NoError(t, err)
	return tempDir, func() { os.RemoveAll(tempDir) }
}

func TestAsyncLogger_WriteAndClose(t *testing.T) {
	tempDir, cleanup := setupAsyncLoggerTest(t)
	defer cleanup()
	logPath := filepath.Join(tempDir, "test.log")
	lj := &lumberjack.Logger{Filename: logPath}
	asyncLogger := NewAsyncLogger(lj, 10)

	fmt.Fprintln(asyncLogger, "message 1")
	fmt.Fprintln(asyncLogger, "message 2")
	fmt.Fprintln(asyncLogger, "message 3")
	err := asyncLogger.Close()

	require.NoError(t, err)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "message 1\nmessage 2\nmessage 3\n", string(content))
}

func TestAsyncLogger_CloseIsIdempotent(t *testing.T) {
	tempDir, cleanup := setupAsyncLoggerTest(t)
	defer cleanup()
	logPath := filepath.Join(tempDir, "test.log")
	lj := &lumberjack.Logger{Filename: logPath}
	asyncLogger := NewAsyncLogger(lj, 4)

	fmt.Fprintln(asyncLogger, "only message")

	require.NoError(t, asyncLogger.Close())
	require.NoError(t, asyncLogger.Close())
}
