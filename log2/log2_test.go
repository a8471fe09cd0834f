package log2

import (
	"bytes"
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFilter(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LInfo)
	l.SetFlags(0)
	l.Debugf("hidden %d", 1)
	l.Infof("visible %d", 2)
	l.Errorf("loud %d", 3)
	assert.Equal(t, "visible 2\nerror: loud 3\n", buf.String())

	l.SetLevel(LAll)
	buf.Reset()
	l.Debugf("now visible")
	assert.Equal(t, "debug: now visible\n", buf.String())
}

func TestNilSafe(t *testing.T) {
	t.Parallel()

	var l *Log
	// must not panic
	l.Debugf("x")
	l.Infof("x")
	l.Errorf("x")
	l.SetLevel(LAll)
	l.SetFlags(log.Lshortfile)
	l.SetErrorFunc(func(error) {})
	assert.Nil(t, l.Clone(LDebug))
	assert.False(t, l.Enabled(LError))
}

func TestErrorFunc(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LError)
	l.SetFlags(0)
	ech := make(chan error, 2)
	l.SetErrorFunc(func(e error) { ech <- e })

	exact := fmt.Errorf("one particular issue")
	l.Error(exact)
	assert.Equal(t, exact, <-ech)

	l.Errorf("trouble var=%.1f", 3.4)
	assert.Equal(t, "trouble var=3.4", (<-ech).Error())

	assert.Equal(t, "error: one particular issue\nerror: trouble var=3.4\n", buf.String())
}

func TestClone(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LError)
	l.SetFlags(0)
	verbose := l.Clone(LDebug)
	verbose.Debugf("detail")
	l.Debugf("quiet")
	assert.Equal(t, "debug: detail\n", buf.String())
}
