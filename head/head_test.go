package head

import (
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travmiller/paper-console-sub000/hardware"
	"github.com/travmiller/paper-console-sub000/hardware/dial"
	"github.com/travmiller/paper-console-sub000/hardware/escpos"
	"github.com/travmiller/paper-console-sub000/log2"
	"github.com/travmiller/paper-console-sub000/printer"
)

type fakeDial struct {
	pos uint8
	fun dial.PositionFunc
}

func (f *fakeDial) Subscribe(name string, fun dial.PositionFunc) { f.fun = fun }
func (f *fakeDial) Position() uint8                              { return f.pos }
func (f *fakeDial) State() hardware.InitState                    { return hardware.InitReady }

type fakeButton struct {
	tap, long, reset, ready func()
}

func (f *fakeButton) SetTapFunc(fn func())            { f.tap = fn }
func (f *fakeButton) SetLongPressFunc(fn func())      { f.long = fn }
func (f *fakeButton) SetFactoryResetFunc(fn func())   { f.reset = fn }
func (f *fakeButton) SetLongPressReadyFunc(fn func()) { f.ready = fn }
func (f *fakeButton) State() hardware.InitState       { return hardware.InitReady }

type fakePort struct{ feeds int }

func (f *fakePort) Degraded() bool            { return false }
func (f *fakePort) Ready() bool               { return true }
func (f *fakePort) Paper() escpos.PaperStatus { return escpos.PaperAdequate }
func (f *fakePort) Feed(lines int) error      { f.feeds += lines; return nil }

type rig struct {
	sys  *System
	dev  *printer.MockDevice
	dial *fakeDial
	btn  *fakeButton
	port *fakePort
}

func newRig(t testing.TB, cfg Config) *rig {
	log := log2.NewTest(t, log2.LDebug)
	r := &rig{
		dev:  printer.NewMockDevice(),
		dial: &fakeDial{pos: 1},
		btn:  &fakeButton{},
		port: &fakePort{},
	}
	prn := printer.New(nil, log, r.dev)
	r.sys = New(cfg, log, prn, r.port, r.dial, r.btn)
	r.sys.Start()
	return r
}

func (r *rig) waitRasters(t testing.TB, n int) []printer.MockRaster {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rs := r.dev.Rasters(); len(rs) >= n {
			return rs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d rasters, have %d", n, len(r.dev.Rasters()))
	return nil
}

func TestTapPrintsChannel(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	printed := false
	require.NoError(t, r.sys.RegisterChannel(3, "test-content", func(p *printer.Printer) error {
		printed = true
		p.PrintHeader("CONTENT")
		return nil
	}))
	r.dial.pos = 3
	r.btn.tap()
	r.sys.Stop()
	rs := r.waitRasters(t, 1)
	assert.True(t, printed)
	assert.Equal(t, printer.LineHeight(printer.StyleHeader), rs[0].H)
}

func TestTapUnboundChannelApologizes(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	r.dial.pos = 7
	r.btn.tap()
	r.sys.Stop()
	r.waitRasters(t, 1)
}

func TestTapUnknownPositionIgnored(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	r.dial.pos = 0
	r.btn.tap()
	r.sys.Stop()
	assert.Len(t, r.dev.Rasters(), 0)
}

func TestChannelErrorPrintsApology(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	require.NoError(t, r.sys.RegisterChannel(2, "broken", func(p *printer.Printer) error {
		p.PrintHeader("PARTIAL")
		return errors.New("backend down")
	}))
	r.dial.pos = 2
	r.btn.tap()
	r.sys.Stop()
	rs := r.waitRasters(t, 1)
	// apology receipt replaces the partial job: bold name + body + feed
	expect := printer.LineHeight(printer.StyleBold) + 2*printer.LineHeight(printer.StyleBody)
	assert.Equal(t, expect, rs[0].H)
}

func TestChannelPanicPrintsApology(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	require.NoError(t, r.sys.RegisterChannel(2, "panicky", func(p *printer.Printer) error {
		panic("oops")
	}))
	r.dial.pos = 2
	r.btn.tap()
	r.sys.Stop()
	r.waitRasters(t, 1)
}

func TestDebounce(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{DebounceMs: 60000})
	require.NoError(t, r.sys.RegisterChannel(1, "one", func(p *printer.Printer) error {
		p.PrintBody("x")
		return nil
	}))
	r.btn.tap()
	r.btn.tap()
	r.sys.Stop()
	rs := r.waitRasters(t, 1)
	assert.Len(t, rs, 1)
}

func TestBusyJobRejectsTapOutright(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{DebounceMs: 1})
	release := make(chan struct{})
	require.NoError(t, r.sys.RegisterChannel(1, "slow", func(p *printer.Printer) error {
		p.PrintBody("transferring")
		<-release
		return nil
	}))
	r.btn.tap()
	// well past the debounce window, first job still holds the gate
	time.Sleep(20 * time.Millisecond)
	r.btn.tap()
	close(release)
	r.sys.Stop()
	// second tap must be rejected, not queued behind the running job
	assert.Len(t, r.dev.Rasters(), 1)
}

func TestRegisterChannelRange(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	nop := func(p *printer.Printer) error { return nil }
	assert.Error(t, r.sys.RegisterChannel(0, "x", nop))
	assert.Error(t, r.sys.RegisterChannel(9, "x", nop))
	assert.NoError(t, r.sys.RegisterChannel(8, "x", nop))
}

func TestSelectionConsumesTap(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	got := uint8(0)
	r.sys.Selection().Enter("game", func(position uint8) { got = position })
	r.dial.pos = 5
	r.btn.tap()
	r.sys.Stop()
	assert.Equal(t, uint8(5), got)
	assert.Len(t, r.dev.Rasters(), 0)
}

func TestQuickActionsTestPage(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	r.btn.long()
	assert.True(t, r.sys.Selection().Active())
	r.dial.pos = qaTestPage
	r.btn.tap()
	assert.False(t, r.sys.Selection().Active())
	r.sys.Stop()
	r.waitRasters(t, 1)
}

func TestQuickActionsStatusReport(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	r.btn.long()
	r.dial.pos = qaStatus
	r.btn.tap()
	r.sys.Stop()
	r.waitRasters(t, 1)
}

func TestQuickActionsUnknownPositionJustExits(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	r.btn.long()
	r.dial.pos = 8
	r.btn.tap()
	assert.False(t, r.sys.Selection().Active())
	r.sys.Stop()
	assert.Len(t, r.dev.Rasters(), 0)
}

func TestQuickActionsExpire(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{QuickActionsTimeoutMs: 10})
	r.btn.long()
	deadline := time.Now().Add(2 * time.Second)
	for r.sys.Selection().Active() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, r.sys.Selection().Active())
	r.sys.Stop()
}

func TestLongPressReadyCue(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	r.btn.ready()
	assert.Equal(t, 1, r.port.feeds)
	r.sys.Stop()
}

func TestFactoryResetHook(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	fired := false
	r.sys.SetFactoryResetFunc(func() { fired = true })
	r.btn.reset()
	assert.True(t, fired)
	r.sys.Stop()
	assert.Len(t, r.dev.Rasters(), 0)
}

func TestFactoryResetDefaultNotice(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{})
	r.btn.reset()
	r.sys.Stop()
	r.waitRasters(t, 1)
}

func TestMaxLinesBudgetApplied(t *testing.T) {
	t.Parallel()
	r := newRig(t, Config{MaxLines: 2})
	require.NoError(t, r.sys.RegisterChannel(1, "chatty", func(p *printer.Printer) error {
		for i := 0; i < 5; i++ {
			p.PrintLine("line")
		}
		return nil
	}))
	r.btn.tap()
	r.sys.Stop()
	rs := r.waitRasters(t, 1)
	// two kept lines plus the truncation marker
	assert.Equal(t, 3*printer.LineHeight(printer.StyleBody), rs[0].H)
}
