package sortedshard

import (
	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

type badgerLogger struct {
	l *zap.SugaredLogger
}

// newBadgerLogger routes badger logs to logger. Badger info logs are demoted
// to debug.
func newBadgerLogger(logger *zap.Logger) badger.Logger {
	return &badgerLogger{l: logger.WithOptions(zap.AddCallerSkip(1)).Sugar().With(zap.String("emitter", "badger"))}
}

func (b *badgerLogger) Errorf(f string, v ...interface{})   { b.l.Errorf(f, v...) }
func (b *badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warnf(f, v...) }
func (b *badgerLogger) Infof(f string, v ...interface{})    { b.l.Debugf(f, v...) }
func (b *badgerLogger) Debugf(f string, v ...interface{})   { b.l.Debugf(f, v...) }
