package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestConsoleOutputFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newImpl("impl", INFO, true, NewWriterAppender(&buf))

	logger.Debug("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Infow("window published", "seq", 3)
	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, len(parts), test.ShouldBeGreaterThanOrEqualTo, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "impl")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "window published")
	test.That(t, parts[len(parts)-1], test.ShouldContainSubstring, `"seq"`)
}

func TestSubloggerAndLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("planner")
	sub.Warnf("path changed at %d", 12)
	sub.SetLevel(ERROR)
	sub.Warn("dropped")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.Level, test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, entry.LoggerName, test.ShouldEqual, "planner")
	test.That(t, entry.Message, test.ShouldEqual, "path changed at 12")

	// parent level is independent of the sublogger's
	logger.Warn("kept")
	test.That(t, logs.FilterMessage("kept").Len(), test.ShouldEqual, 1)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.out)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loud")
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("odd", "key")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	fields := logs.All()[0].ContextMap()
	test.That(t, fields["key"], test.ShouldNotBeNil)
}

func TestPairFields(t *testing.T) {
	fields := pairFields([]interface{}{"seq", 4, errUnpairedKey, "x", "dangling"})
	test.That(t, len(fields), test.ShouldEqual, 3)
	test.That(t, fields[0].Key, test.ShouldEqual, "seq")
	test.That(t, fields[1].Key, test.ShouldEqual, "unpaired log key")
	test.That(t, fields[2].Key, test.ShouldEqual, "dangling")
	test.That(t, pairFields(nil), test.ShouldBeEmpty)
}

func TestSyncCombinesAppenderErrors(t *testing.T) {
	logger := newImpl("sync", INFO, true, failingSync{}, NewWriterAppender(&bytes.Buffer{}), failingSync{})
	err := logger.Sync()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 2)
}

type failingSync struct{}

func (failingSync) Write(zapcore.Entry, []zapcore.Field) error { return nil }

func (failingSync) Sync() error { return errors.New("flush failed") }
