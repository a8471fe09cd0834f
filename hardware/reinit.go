// Package hardware holds pieces shared by the GPIO drivers.
package hardware

import (
	"sync/atomic"
	"time"

	"github.com/temoto/alive/v2"

	"github.com/travmiller/paper-console-sub000/helpers"
	"github.com/travmiller/paper-console-sub000/log2"
)

type InitState uint32

const (
	InitUninit InitState = iota
	InitRetrying
	InitReady
	InitFailed
)

func (s InitState) String() string {
	switch s {
	case InitUninit:
		return "uninit"
	case InitRetrying:
		return "retrying"
	case InitReady:
		return "ready"
	case InitFailed:
		return "failed"
	}
	return "unknown!"
}

// Reinit drives bounded background re-initialization of a device that was
// busy or missing at startup. Each attempt either fully restores the device
// or leaves it disabled until the next attempt; after Attempts failures the
// device stays in failed state, reported via State(), never panicking.
type Reinit struct {
	Log      *log2.Log
	Tag      string
	Attempts int
	Delay    time.Duration

	state uint32 // atomic InitState
	tries int32
}

func (r *Reinit) State() InitState { return InitState(atomic.LoadUint32(&r.state)) }
func (r *Reinit) Ready() bool      { return r.State() == InitReady }
func (r *Reinit) Tries() int       { return int(atomic.LoadInt32(&r.tries)) }

// MarkReady records a first-try init success without a retry task.
func (r *Reinit) MarkReady() { atomic.StoreUint32(&r.state, uint32(InitReady)) }

// Run blocks trying `try` up to Attempts times with Delay between attempts.
// Call on a dedicated goroutine under a. Stops early on a.Stop().
func (r *Reinit) Run(a *alive.Alive, try func() error) {
	atomic.StoreUint32(&r.state, uint32(InitRetrying))
	stopch := a.StopChan()
	bo := helpers.Backoff{Min: r.Delay, Max: r.Delay, K: 1}
	// the failed open that brought us here counts as the first failure
	bo.Failure()
	tmr := time.NewTimer(bo.DelayBefore())
	defer tmr.Stop()
	for i := 1; i <= r.Attempts; i++ {
		select {
		case <-tmr.C:
		case <-stopch:
			atomic.StoreUint32(&r.state, uint32(InitFailed))
			return
		}
		atomic.StoreInt32(&r.tries, int32(i))
		err := try()
		if err == nil {
			atomic.StoreUint32(&r.state, uint32(InitReady))
			r.Log.Infof("%s recovered try=%d", r.Tag, i)
			return
		}
		bo.Failure()
		r.Log.Errorf("%s reinit try=%d/%d: %s", r.Tag, i, r.Attempts, err.Error())
		tmr.Reset(bo.DelayBefore())
	}
	atomic.StoreUint32(&r.state, uint32(InitFailed))
	r.Log.Errorf("%s disabled after %d attempts fails=%d", r.Tag, r.Attempts, bo.Failures())
}
