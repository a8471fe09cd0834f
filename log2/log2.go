// Package log2 is a thin leveled logger on top of stdlib log.
// Niceties over stdlib:
// - level filtering with safe concurrent level change
// - nil *Log is valid and silent, so hardware drivers may log unconditionally
// - NewTest routes into t.Logf for parallel tests
package log2

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync/atomic"
	"testing"
)

const (
	Lmicroseconds     int = log.Lmicroseconds
	Lshortfile        int = log.Lshortfile
	LStdFlags         int = log.Ltime | log.Lshortfile
	LInteractiveFlags int = log.Ltime | log.Lshortfile | log.Lmicroseconds
	LServiceFlags     int = log.Lshortfile
	LTestFlags        int = log.Lshortfile | log.Lmicroseconds
)

type Level int32

const (
	LError Level = iota
	LInfo
	LDebug
	LAll Level = math.MaxInt32
)

type FmtFunc func(format string, args ...interface{})

type Log struct {
	l       *log.Logger
	level   Level
	w       io.Writer
	fatalf  FmtFunc
	onError atomic.Value // func(error)
}

func NewStderr(level Level) *Log { return NewWriter(os.Stderr, level) }

func NewWriter(w io.Writer, level Level) *Log {
	if w == io.Discard {
		return nil
	}
	return &Log{
		l:     log.New(w, "", LStdFlags),
		level: level,
		w:     w,
	}
}

type fmtWriter struct{ f FmtFunc }

func (fw fmtWriter) Write(b []byte) (int, error) {
	n := len(b)
	// target FmtFunc appends its own newline
	if n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	fw.f("%s", string(b))
	return n, nil
}

func NewFunc(f FmtFunc, level Level) *Log { return NewWriter(fmtWriter{f}, level) }

func NewTest(t testing.TB, level Level) *Log {
	self := NewFunc(t.Logf, level)
	self.SetFlags(LTestFlags)
	self.fatalf = t.Fatalf
	return self
}

// Clone returns a copy with independent level, sharing the output.
func (self *Log) Clone(level Level) *Log {
	if self == nil {
		return nil
	}
	l := NewWriter(self.w, level)
	l.l.SetFlags(self.l.Flags())
	l.l.SetPrefix(self.l.Prefix())
	l.fatalf = self.fatalf
	return l
}

func (self *Log) SetLevel(l Level) {
	if self == nil {
		return
	}
	atomic.StoreInt32((*int32)(&self.level), int32(l))
}

func (self *Log) SetFlags(f int) {
	if self == nil {
		return
	}
	self.l.SetFlags(f)
}

func (self *Log) SetPrefix(prefix string) {
	if self == nil {
		return
	}
	self.l.SetPrefix(prefix)
}

// SetErrorFunc registers a hook called with every Error/Errorf argument,
// e.g. to count faults in a health report.
func (self *Log) SetErrorFunc(f func(error)) {
	if self == nil {
		return
	}
	self.onError.Store(f)
}

func (self *Log) Enabled(level Level) bool {
	if self == nil {
		return false
	}
	return atomic.LoadInt32((*int32)(&self.level)) >= int32(level)
}

func (self *Log) Logf(level Level, format string, args ...interface{}) {
	if self.Enabled(level) {
		_ = self.l.Output(3, fmt.Sprintf(format, args...))
	}
}

func (self *Log) Error(args ...interface{}) {
	if self == nil {
		return
	}
	if len(args) == 1 {
		if e, ok := args[0].(error); ok {
			self.fireError(e)
			self.Logf(LError, "error: %s", e.Error())
			return
		}
	}
	s := fmt.Sprint(args...)
	self.fireError(fmt.Errorf("%s", s))
	self.Logf(LError, "error: %s", s)
}

func (self *Log) Errorf(format string, args ...interface{}) {
	if self == nil {
		return
	}
	s := fmt.Sprintf(format, args...)
	self.fireError(fmt.Errorf("%s", s))
	self.Logf(LError, "error: %s", s)
}

func (self *Log) Info(args ...interface{})                  { self.Logf(LInfo, "%s", fmt.Sprint(args...)) }
func (self *Log) Infof(format string, args ...interface{})  { self.Logf(LInfo, format, args...) }
func (self *Log) Debug(args ...interface{})                 { self.Logf(LDebug, "debug: %s", fmt.Sprint(args...)) }
func (self *Log) Debugf(format string, args ...interface{}) { self.Logf(LDebug, "debug: "+format, args...) }

func (self *Log) Fatalf(format string, args ...interface{}) {
	if self != nil && self.fatalf != nil {
		self.fatalf(format, args...)
		return
	}
	self.Logf(LError, "fatal: "+format, args...)
	os.Exit(1)
}

func (self *Log) Fatal(args ...interface{}) { self.Fatalf("%s", fmt.Sprint(args...)) }

func (self *Log) fireError(e error) {
	if self == nil {
		return
	}
	if f, ok := self.onError.Load().(func(error)); ok && f != nil {
		f(e)
	}
}
