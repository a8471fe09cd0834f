// Package head ties dial, button, selection overlay and printer into the
// appliance behavior: dial picks a channel, tap prints it, long press opens
// quick actions, holding through the reset threshold fires factory reset.
package head

import (
	"fmt"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/atomic_clock"

	"github.com/travmiller/paper-console-sub000/hardware"
	"github.com/travmiller/paper-console-sub000/hardware/dial"
	"github.com/travmiller/paper-console-sub000/hardware/escpos"
	"github.com/travmiller/paper-console-sub000/log2"
	"github.com/travmiller/paper-console-sub000/printer"
	"github.com/travmiller/paper-console-sub000/selection"
)

const (
	DefaultDebounce           = 3 * time.Second
	DefaultQuickActionsExpire = 30 * time.Second

	quickActionsOwner = "quick-actions"

	qaTestPage = 1
	qaStatus   = 2
)

type Config struct {
	DebounceMs            int
	QuickActionsTimeoutMs int
	MaxLines              int // per-job truncation budget, 0 = unlimited
}

// Dialer and Buttoner are the slices of the hardware drivers the head
// consumes; tests plug in fakes.
type Dialer interface {
	Subscribe(name string, fun dial.PositionFunc)
	Position() uint8
	State() hardware.InitState
}

type Buttoner interface {
	SetTapFunc(func())
	SetLongPressFunc(func())
	SetFactoryResetFunc(func())
	SetLongPressReadyFunc(func())
	State() hardware.InitState
}

// Transport is the escpos side the head needs beyond the raster path.
type Transport interface {
	Degraded() bool
	Ready() bool
	Paper() escpos.PaperStatus
	Feed(lines int) error
}

// ChannelFunc fills one print job. Returning an error replaces the job
// with an apology receipt.
type ChannelFunc func(p *printer.Printer) error

type channelEntry struct {
	name string
	fun  ChannelFunc
}

type System struct {
	alive *alive.Alive
	log   *log2.Log
	cfg   Config

	prn  *printer.Printer
	port Transport
	dial Dialer
	btn  Buttoner
	sel  *selection.Mode

	mu             sync.Mutex
	channels       map[uint8]channelEntry
	onFactoryReset func()

	printMu   sync.Mutex // guards printing and lastPrint together
	printing  bool
	lastPrint atomic_clock.Clock
	debounce  time.Duration
	qaExpire  time.Duration
}

func New(cfg Config, log *log2.Log, prn *printer.Printer, port Transport, d Dialer, b Buttoner) *System {
	self := &System{
		alive:    alive.NewAlive(),
		log:      log,
		cfg:      cfg,
		prn:      prn,
		port:     port,
		dial:     d,
		btn:      b,
		sel:      selection.New(log),
		channels: make(map[uint8]channelEntry),
		debounce: DefaultDebounce,
		qaExpire: DefaultQuickActionsExpire,
	}
	if cfg.DebounceMs > 0 {
		self.debounce = time.Duration(cfg.DebounceMs) * time.Millisecond
	}
	if cfg.QuickActionsTimeoutMs > 0 {
		self.qaExpire = time.Duration(cfg.QuickActionsTimeoutMs) * time.Millisecond
	}
	return self
}

func (self *System) Selection() *selection.Mode { return self.sel }

// RegisterChannel binds a content module to a dial position 1..8.
// Rebinding a position replaces the previous module.
func (self *System) RegisterChannel(position uint8, name string, fun ChannelFunc) error {
	if position < 1 || position > dial.Positions {
		return errors.Errorf("channel %s position=%d out of range", name, position)
	}
	self.mu.Lock()
	self.channels[position] = channelEntry{name: name, fun: fun}
	self.mu.Unlock()
	return nil
}

// SetFactoryResetFunc installs the destructive reset action. Without one
// the trigger only prints a notice.
func (self *System) SetFactoryResetFunc(f func()) {
	self.mu.Lock()
	self.onFactoryReset = f
	self.mu.Unlock()
}

// Start wires the input callbacks. Call after channels are registered.
func (self *System) Start() {
	self.dial.Subscribe("head", func(position uint8) {
		self.log.Infof("channel=%d selected", position)
	})
	self.btn.SetTapFunc(self.tap)
	self.btn.SetLongPressFunc(self.longPress)
	self.btn.SetLongPressReadyFunc(self.longPressReady)
	self.btn.SetFactoryResetFunc(self.factoryReset)
}

func (self *System) Stop() { self.alive.Stop(); self.alive.Wait() }

func (self *System) tap() {
	pos := self.dial.Position()
	if self.sel.Dispatch(pos) {
		return
	}
	if pos == 0 {
		self.log.Errorf("tap with unknown dial position")
		return
	}
	self.spawnPrint(pos)
}

func (self *System) spawnPrint(position uint8) {
	self.mu.Lock()
	entry, ok := self.channels[position]
	self.mu.Unlock()
	if !ok {
		entry = channelEntry{name: fmt.Sprintf("channel %d", position), fun: func(p *printer.Printer) error {
			p.PrintBody(fmt.Sprintf("Nothing on channel %d yet.", position))
			return nil
		}}
	}
	self.spawnJob(entry)
}

// spawnJob runs one print job off the input callback goroutine so a slow
// raster transfer cannot stall button event handling.
func (self *System) spawnJob(entry channelEntry) {
	if !self.tryStartPrint() {
		return
	}
	if !self.alive.Add(1) {
		return
	}
	go func() {
		defer self.alive.Done()
		self.runJob(entry)
	}()
}

// tryStartPrint admits at most one job at a time and enforces the minimum
// gap between jobs. A tap while printing or inside the gap is rejected
// outright, never queued: extra receipts must not pile up behind a slow
// raster transfer.
func (self *System) tryStartPrint() bool {
	self.printMu.Lock()
	defer self.printMu.Unlock()
	if self.printing {
		self.log.Debugf("print rejected: job in progress")
		return false
	}
	if d := atomic_clock.Since(&self.lastPrint); d < self.debounce {
		self.log.Debugf("print debounced after=%v", d)
		return false
	}
	self.printing = true
	self.lastPrint.SetNow()
	return true
}

// runJob requires a prior successful tryStartPrint, which is what makes it
// the only job touching the printer.
func (self *System) runJob(entry channelEntry) {
	defer func() {
		self.printMu.Lock()
		self.printing = false
		self.printMu.Unlock()
	}()
	self.prn.Reset(self.cfg.MaxLines)
	if err := self.jobIsolated(entry); err != nil {
		self.log.Error(errors.Annotatef(err, "channel=%s", entry.name))
		self.prn.Reset(0)
		self.prn.PrintBold(entry.name)
		self.prn.PrintBody("could not load this content")
		self.prn.Feed(1)
	}
	if err := self.prn.Flush(); err != nil {
		self.log.Error(errors.Annotatef(err, "flush channel=%s", entry.name))
	}
}

func (self *System) jobIsolated(entry channelEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("channel=%s panic: %v", entry.name, r)
		}
	}()
	return entry.fun(self.prn)
}

// longPressReady gives tactile feedback at the long-press threshold while
// the button is still held: a short paper feed, skipping the raster path.
func (self *System) longPressReady() {
	if err := self.port.Feed(1); err != nil {
		self.log.Error(errors.Annotate(err, "cue feed"))
	}
}

// longPress opens the quick-actions overlay: the next tap submits the dial
// position as an action. The session expires unless used.
func (self *System) longPress() {
	self.log.Info("quick actions open")
	self.sel.Enter(quickActionsOwner, self.quickAction)
	time.AfterFunc(self.qaExpire, func() {
		if self.sel.ExitOwner(quickActionsOwner) {
			self.log.Info("quick actions expired")
		}
	})
}

func (self *System) quickAction(position uint8) {
	self.sel.ExitOwner(quickActionsOwner)
	switch position {
	case qaTestPage:
		self.spawnJob(channelEntry{name: "test page", fun: TestPage})
	case qaStatus:
		self.spawnJob(channelEntry{name: "status", fun: self.statusReport})
	default:
		self.log.Infof("quick action position=%d ignored", position)
	}
}

func (self *System) factoryReset() {
	self.mu.Lock()
	f := self.onFactoryReset
	self.mu.Unlock()
	self.log.Info("factory reset triggered")
	if f == nil {
		self.spawnJob(channelEntry{name: "factory reset", fun: func(p *printer.Printer) error {
			p.PrintBold("FACTORY RESET")
			p.PrintBody("No reset action is configured on this device.")
			p.Feed(1)
			return nil
		}})
		return
	}
	f()
}

// TestPage exercises every render path: styled text, box, graphics.
// Bound to a quick action and reused by the smoke-test CLI.
func TestPage(p *printer.Printer) error {
	p.PrintHeader("TEST PAGE")
	p.PrintBody("The quick brown fox jumps over the lazy dog 0123456789")
	p.PrintBox("styled box", printer.StyleBold)
	p.PrintMoonPhase(14, 96)
	p.Feed(1)
	return nil
}

func (self *System) statusReport(p *printer.Printer) error {
	p.PrintHeader("STATUS")
	p.PrintLine(fmt.Sprintf("dial     %s  position=%d", self.dial.State(), self.dial.Position()))
	p.PrintLine(fmt.Sprintf("button   %s", self.btn.State()))
	link := "ok"
	if self.port.Degraded() {
		link = "degraded"
	}
	p.PrintLine(fmt.Sprintf("printer  %s ready=%t paper=%s", link, self.port.Ready(), self.port.Paper()))
	p.Feed(1)
	return nil
}
