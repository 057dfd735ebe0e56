package logging

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const Stacktrace = "stacktrace"

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type causer interface {
	Cause() error
}

// WithStacktrace adds err and, when one was recorded by pkg/errors, its stack trace to the entry.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	logger = logger.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		logger = logger.WithField(Stacktrace, stack)
	}
	return logger
}

// ExtractStack returns the first stack trace found walking down the cause chain, or nil.
func ExtractStack(err error) errors.StackTrace {
	for err != nil {
		if stackErr, ok := err.(stackTracer); ok {
			return stackErr.StackTrace()
		}
		causeErr, ok := err.(causer)
		if !ok {
			return nil
		}
		err = causeErr.Cause()
	}
	return nil
}
