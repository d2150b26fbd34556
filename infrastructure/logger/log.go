package logger

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"
)

type logEntry struct {
	level Level
	log   []byte
}

// Logger is a subsystem-scoped handle to a Backend. Every package under this
// module that performs meaningful work (objectstore, refindex, headerstore,
// reconcile, store) keeps a package-level `log *logger.Logger` obtained from
// a shared Backend, tagged with a short subsystem code.
type Logger struct {
	lvl          Level
	subsystemTag string
	b            *Backend
	writeChan    chan<- logEntry
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32((*uint32)(&l.lvl)))
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32((*uint32)(&l.lvl), uint32(level))
}

func (l *Logger) write(level Level, s string) {
	if level < l.Level() {
		return
	}
	if flags := l.b.flag; flags&(LogFlagShortFile|LogFlagLongFile) != 0 {
		// Caller(2) skips write and the Tracef..Criticalf wrapper.
		if _, file, lineNo, ok := runtime.Caller(2); ok {
			if flags&LogFlagShortFile != 0 {
				file = filepath.Base(file)
			}
			s = fmt.Sprintf("%s:%d %s", file, lineNo, s)
		}
	}
	line := fmt.Sprintf("%s [%s] %s\n", time.Now().Format("2006-01-02 15:04:05.000"), l.subsystemTag, s)
	if !l.b.IsRunning() {
		fmt.Print(line)
		return
	}
	l.writeChan <- logEntry{level: level, log: []byte(line)}
}

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.write(LevelTrace, fmt.Sprintf(format, args...))
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(LevelDebug, fmt.Sprintf(format, args...))
}

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(LevelError, fmt.Sprintf(format, args...))
}

// Criticalf logs at LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, fmt.Sprintf(format, args...))
}
