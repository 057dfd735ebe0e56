package logging

import (
	"bytes"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter writes bare messages, so command output reads as plain text. Warnings and errors are
// prefixed with their level and followed by the error attached to the entry, if any.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	problem := entry.Level <= log.WarnLevel
	if problem {
		b.WriteString(entry.Level.String())
		b.WriteString(": ")
	}
	b.WriteString(entry.Message)
	if err, ok := entry.Data[log.ErrorKey].(error); ok && problem {
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
