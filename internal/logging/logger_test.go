package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLogWritesConsoleLineWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{enabled: true, console: true, out: &buf}

	l.Log(&Entry{ExecutionKind: "actions", Success: true, DurationMS: 42, Host: "host1"})

	assert.Contains(t, buf.String(), "[actions] ok 42ms host1")
}

func TestLoggerLogWritesFailStatusAndError(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{enabled: true, console: true, out: &buf}

	l.Log(&Entry{ExecutionKind: "verifications", Success: false, Error: "mismatch"})

	assert.Contains(t, buf.String(), "[verifications] fail")
	assert.Contains(t, buf.String(), "error: mismatch")
}

func TestLoggerLogNoopWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{enabled: false, console: true, out: &buf}

	l.Log(&Entry{ExecutionKind: "actions", Success: true})

	assert.Empty(t, buf.String())
}

func TestLoggerSetOutputWritesJSONLines(t *testing.T) {
	l := &Logger{enabled: true, out: &bytes.Buffer{}}
	path := filepath.Join(t.TempDir(), "log.jsonl")
	require.NoError(t, l.SetOutput(path))
	defer l.Close()

	l.Log(&Entry{ExecutionKind: "navigation", Success: true, Host: "host1"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var e Entry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &e))
	assert.Equal(t, "navigation", e.ExecutionKind)
	assert.Equal(t, "host1", e.Host)
}

func TestLoggerSetOutputReplacesPreviousFile(t *testing.T) {
	l := &Logger{enabled: true, out: &bytes.Buffer{}}
	first := filepath.Join(t.TempDir(), "a.jsonl")
	second := filepath.Join(t.TempDir(), "b.jsonl")

	require.NoError(t, l.SetOutput(first))
	require.NoError(t, l.SetOutput(second))
	l.Log(&Entry{ExecutionKind: "blocks"})
	l.Close()

	firstData, _ := os.ReadFile(first)
	secondData, _ := os.ReadFile(second)
	assert.Empty(t, firstData)
	assert.NotEmpty(t, secondData)
}

func TestScopeWriteCapturesAndTees(t *testing.T) {
	var tee bytes.Buffer
	s := &Scope{tee: &tee}

	n, err := s.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "hello\n", s.String())
	assert.Equal(t, "hello\n", tee.String())
}

func TestNewScopeBindsRetrievableScope(t *testing.T) {
	ctx, scope := NewScope(context.Background())

	assert.Same(t, scope, FromContext(ctx))
}

func TestFromContextUnboundReturnsNil(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}

func TestPrintfWritesIntoBoundScope(t *testing.T) {
	ctx, scope := NewScope(context.Background())
	scope.tee = nil // avoid writing to the real stdout during the test

	Printf(ctx, "step %d of %d", 1, 3)

	assert.Equal(t, "step 1 of 3\n", scope.String())
}

func TestExecuteWithLoggingReturnsResultAndCapturedLog(t *testing.T) {
	result, logs, err := ExecuteWithLogging(context.Background(), func(ctx context.Context) (int, error) {
		if s := FromContext(ctx); s != nil {
			s.tee = nil
			Printf(ctx, "working")
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Contains(t, logs, "working")
}

func TestExecuteWithLoggingPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := ExecuteWithLogging(context.Background(), func(ctx context.Context) (int, error) {
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
}
