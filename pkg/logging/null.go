package logging

import "context"

// NullLogger drops every record. Components fall back to it when the caller
// passes no logger.
type NullLogger struct{}

// Discard is the shared null logger
var Discard Logger = NullLogger{}

// NewNullLogger returns Discard
func NewNullLogger() Logger {
	return Discard
}

func (NullLogger) Debug(context.Context, string, Fields)        {}
func (NullLogger) Info(context.Context, string, Fields)         {}
func (NullLogger) Warn(context.Context, string, Fields)         {}
func (NullLogger) Error(context.Context, string, error, Fields) {}

// WithFields returns the null logger itself
func (l NullLogger) WithFields(Fields) Logger { return l }

func (NullLogger) Close() error { return nil }
