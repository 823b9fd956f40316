// Package logging provides the small per-component logger used across
// this module, mirroring the shape of the teacher's repo/logging
// package (Module(name) returning a Debugf/Warnf/Errorf logger).
package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Logger is the minimal surface components in this module log through.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

var (
	baseOnce sync.Once
	base     *zap.SugaredLogger
)

func sugaredBase() *zap.SugaredLogger {
	baseOnce.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}

		base = l.Sugar()
	})

	return base
}

type moduleLogger struct {
	s *zap.SugaredLogger
}

func (m moduleLogger) Debugf(format string, args ...interface{}) { m.s.Debugf(format, args...) }
func (m moduleLogger) Warnf(format string, args ...interface{})  { m.s.Warnf(format, args...) }
func (m moduleLogger) Errorf(format string, args ...interface{}) { m.s.Errorf(format, args...) }

// Module returns a Logger tagged with the given component name, the way
// the teacher's repo/logging.Module does.
func Module(name string) Logger {
	return moduleLogger{s: sugaredBase().Named(name)}
}
