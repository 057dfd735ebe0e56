package logging

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestExtractStack(t *testing.T) {
	t.Run("plain error has no stack", func(t *testing.T) {
		assert.Nil(t, ExtractStack(fmt.Errorf("plain")))
	})
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, ExtractStack(nil))
	})
	t.Run("stack found through wrapping", func(t *testing.T) {
		err := errors.Wrap(errors.New("root"), "outer")
		assert.NotNil(t, ExtractStack(err))
	})
}

func TestWithStacktrace(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())

	withStack := WithStacktrace(entry, errors.New("boom"))
	assert.Contains(t, withStack.Data, Stacktrace)
	assert.Contains(t, withStack.Data, logrus.ErrorKey)

	withoutStack := WithStacktrace(entry, fmt.Errorf("boom"))
	assert.NotContains(t, withoutStack.Data, Stacktrace)
}

func TestCommandLineFormatter(t *testing.T) {
	tests := map[string]struct {
		level    logrus.Level
		err      error
		expected string
	}{
		"info": {
			level:    logrus.InfoLevel,
			expected: "Watching job 42\n",
		},
		"info ignores error": {
			level:    logrus.InfoLevel,
			err:      errors.New("boom"),
			expected: "Watching job 42\n",
		},
		"warning": {
			level:    logrus.WarnLevel,
			expected: "warning: Watching job 42\n",
		},
		"error with cause": {
			level:    logrus.ErrorLevel,
			err:      errors.New("connection refused"),
			expected: "error: Watching job 42: connection refused\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			entry := logrus.NewEntry(logrus.New())
			if tc.err != nil {
				entry = entry.WithError(tc.err)
			}
			entry.Level = tc.level
			entry.Message = "Watching job 42"

			out, err := new(CommandLineFormatter).Format(entry)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, string(out))
		})
	}
}
