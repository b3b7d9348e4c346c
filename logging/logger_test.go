package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T) (*ZapLogger, *observer.ObservedLogs) {
	t.Helper()
	core, obs := observer.New(zap.DebugLevel)
	return &ZapLogger{z: zap.New(core).Sugar()}, obs
}

func TestTrack(t *testing.T) {
	logger, obs := newObserved(t)

	ctx := With(t.Context(), logger)
	Track(ctx, "foo", "bar") // Should be passed on to child logger.

	ctx2 := With(ctx, FromContext(ctx).Named("nested"))
	Track(ctx2, "baz", "bam") // Should not propagate to root logger.

	Info(ctx, "root log")
	Info(ctx2, "nested log")

	require.Equal(t, 2, obs.Len())
	allLogs := obs.All()
	assert.Equal(t, "root log", allLogs[0].Message)
	assert.ElementsMatch(t, []zap.Field{
		zap.String("foo", "bar"),
	}, allLogs[0].Context)

	assert.Equal(t, "nested log", allLogs[1].Message)
	assert.ElementsMatch(t, []zap.Field{
		zap.String("foo", "bar"),
		zap.String("baz", "bam"),
	}, allLogs[1].Context)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger, obs := newObserved(t)
	prev := Default()
	SetDefault(logger)
	t.Cleanup(func() { SetDefault(prev) })

	Infow(t.Context(), "no scoped logger", "key", "value")

	require.Equal(t, 1, obs.Len())
	entry := obs.All()[0]
	assert.Equal(t, "no scoped logger", entry.Message)
	assert.Contains(t, entry.Context, zap.String("key", "value"))
}

func TestLevels(t *testing.T) {
	logger, obs := newObserved(t)

	logger.Debugf("debug: %d", 1)
	logger.Infow("info", "key", "value")
	logger.Warn("warn")
	logger.Errorw("error", "key", "value")

	require.Equal(t, 4, obs.Len())
	entries := obs.All()
	assert.Equal(t, "debug: 1", entries[0].Message)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Contains(t, entries[1].Context, zap.String("key", "value"))
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
}

func TestNamedAndWith(t *testing.T) {
	logger, obs := newObserved(t)

	logger.Named("auth").With("user", int64(7)).Info("hello")

	require.Equal(t, 1, obs.Len())
	entry := obs.All()[0]
	assert.Equal(t, "auth", entry.LoggerName)
	assert.Contains(t, entry.Context, zap.Int64("user", 7))
}

func TestNewLoggers(t *testing.T) {
	assert.IsType(t, &ZapLogger{}, NewDevLogger())
	assert.IsType(t, &ZapLogger{}, NewProdLogger())
}
