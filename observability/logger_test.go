package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.WithFields(map[string]interface{}{"conversation_id": "c1"}).Info("conversation created")
	logger.WithContext(context.Background()).WithErr(errors.New("boom")).Error("save failed")

	require.Equal(t, 2, logs.Len())
	entries := logs.All()

	assert.Equal(t, "conversation created", entries[0].Message)
	assert.Equal(t, "c1", entries[0].ContextMap()["conversation_id"])

	assert.Equal(t, "save failed", entries[1].Message)
	assert.Equal(t, "boom", entries[1].ContextMap()[ErrorLogField])
}

func TestZapLogger_NilFallsBackToProduction(t *testing.T) {
	assert.NotNil(t, NewZapLogger(nil))
}

func TestLogrusLogger(t *testing.T) {
	base, hook := logrustest.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	logger := NewLogrusLogger(base)

	logger.WithFields(map[string]interface{}{"conversation_id": "c1"}).Info("conversation created")
	logger.WithContext(context.Background()).WithErr(errors.New("boom")).Error("save failed")

	require.Len(t, hook.Entries, 2)

	assert.Equal(t, "conversation created", hook.Entries[0].Message)
	assert.Equal(t, "c1", hook.Entries[0].Data["conversation_id"])

	assert.Equal(t, "save failed", hook.Entries[1].Message)
	loggedErr, ok := hook.Entries[1].Data[ErrorLogField].(error)
	require.True(t, ok)
	assert.EqualError(t, loggedErr, "boom")
}

func TestLogrusLogger_NilFallsBackToStandard(t *testing.T) {
	assert.NotNil(t, NewLogrusLogger(nil))
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()

	// Every method is a no-op and chaining never panics.
	logger.WithFields(map[string]interface{}{"k": "v"}).
		WithContext(context.Background()).
		WithErr(errors.New("boom")).
		Error("dropped")
}
