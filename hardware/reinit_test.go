package hardware

import (
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/temoto/alive/v2"

	"github.com/travmiller/paper-console-sub000/log2"
)

func TestReinitRecovers(t *testing.T) {
	t.Parallel()

	a := alive.NewAlive()
	defer a.Stop()
	r := &Reinit{Log: log2.NewTest(t, log2.LDebug), Tag: "dev", Attempts: 5, Delay: time.Millisecond}
	assert.Equal(t, InitUninit, r.State())

	calls := 0
	r.Run(a, func() error {
		calls++
		if calls < 3 {
			return errors.New("still busy")
		}
		return nil
	})
	assert.Equal(t, InitReady, r.State())
	assert.True(t, r.Ready())
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, r.Tries())
}

func TestReinitExhausts(t *testing.T) {
	t.Parallel()

	a := alive.NewAlive()
	defer a.Stop()
	r := &Reinit{Log: log2.NewTest(t, log2.LDebug), Tag: "dev", Attempts: 3, Delay: time.Millisecond}
	calls := 0
	r.Run(a, func() error { calls++; return errors.New("no such device") })
	assert.Equal(t, InitFailed, r.State())
	assert.False(t, r.Ready())
	assert.Equal(t, 3, calls)
}

func TestReinitStop(t *testing.T) {
	t.Parallel()

	a := alive.NewAlive()
	r := &Reinit{Log: log2.NewTest(t, log2.LDebug), Tag: "dev", Attempts: 100, Delay: time.Hour}
	done := make(chan struct{})
	go func() {
		r.Run(a, func() error { return errors.New("unreachable") })
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	a.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, InitFailed, r.State())
}
