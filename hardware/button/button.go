// Package button drives the momentary push button on a GPIO line.
//
// The kernel delivers edge events through a line-event file descriptor;
// the driver waits on it with a short timeout so the same loop doubles as
// the held-duration ticker. Press classification lives in machine (fsm.go).
package button

import (
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	gpio "github.com/temoto/gpio-cdev-go"

	"github.com/travmiller/paper-console-sub000/hardware"
	"github.com/travmiller/paper-console-sub000/log2"
)

const (
	DefaultLongPress    = 5 * time.Second
	DefaultFactoryReset = 15 * time.Second
	DefaultPoll         = 100 * time.Millisecond

	DefaultReinitAttempts = 5
	DefaultReinitDelay    = 30 * time.Second

	consumerTag = "console-button"
)

type Config struct { //nolint:maligned
	Pin              uint32 `hcl:"pin"`
	LongPressMs      int    `hcl:"long_press_ms"`
	FactoryResetMs   int    `hcl:"factory_reset_ms"`
	PollMs           int    `hcl:"poll_ms"`
	ReinitAttempts   int    `hcl:"reinit_attempts"`
	ReinitDelaySec   int    `hcl:"reinit_delay_sec"`
}

// ChipFunc returns an open GPIO chip; called again on each re-init attempt
// so a chip that appears late still recovers the driver.
type ChipFunc func() (gpio.Chiper, error)

type Driver struct {
	alive  *alive.Alive
	log    *log2.Log
	cfg    Config
	poll   time.Duration
	reinit hardware.Reinit
	chipf  ChipFunc

	mu             sync.Mutex
	onTap          func()
	onLongPress    func()
	onFactoryReset func()
	onReady        func()
}

func New(cfg *Config, log *log2.Log) *Driver {
	c := *cfg
	if c.LongPressMs == 0 {
		c.LongPressMs = int(DefaultLongPress / time.Millisecond)
	}
	if c.FactoryResetMs == 0 {
		c.FactoryResetMs = int(DefaultFactoryReset / time.Millisecond)
	}
	if c.PollMs == 0 {
		c.PollMs = int(DefaultPoll / time.Millisecond)
	}
	if c.ReinitAttempts == 0 {
		c.ReinitAttempts = DefaultReinitAttempts
	}
	if c.ReinitDelaySec == 0 {
		c.ReinitDelaySec = int(DefaultReinitDelay / time.Second)
	}
	self := &Driver{
		alive: alive.NewAlive(),
		log:   log,
		cfg:   c,
		poll:  time.Duration(c.PollMs) * time.Millisecond,
	}
	self.reinit = hardware.Reinit{
		Log:      log,
		Tag:      "button",
		Attempts: c.ReinitAttempts,
		Delay:    time.Duration(c.ReinitDelaySec) * time.Second,
	}
	return self
}

func (self *Driver) SetTapFunc(f func())            { self.mu.Lock(); self.onTap = f; self.mu.Unlock() }
func (self *Driver) SetLongPressFunc(f func())      { self.mu.Lock(); self.onLongPress = f; self.mu.Unlock() }
func (self *Driver) SetFactoryResetFunc(f func())   { self.mu.Lock(); self.onFactoryReset = f; self.mu.Unlock() }
func (self *Driver) SetLongPressReadyFunc(f func()) { self.mu.Lock(); self.onReady = f; self.mu.Unlock() }

// Start never returns an error: a busy or missing line parks the driver in
// disabled mode with bounded background retries. Check Healthy().
func (self *Driver) Start(chipf ChipFunc) {
	self.chipf = chipf
	ev, err := self.open()
	if err == nil {
		self.reinit.MarkReady()
		self.spawnLoop(ev)
		return
	}
	self.log.Error(errors.Annotate(err, "button init"))
	if !self.alive.Add(1) {
		return
	}
	go func() {
		defer self.alive.Done()
		self.reinit.Run(self.alive, func() error {
			ev, err := self.open()
			if err != nil {
				return err
			}
			self.spawnLoop(ev)
			return nil
		})
	}()
}

func (self *Driver) Stop()           { self.alive.Stop(); self.alive.Wait() }
func (self *Driver) Healthy() bool   { return self.reinit.Ready() }
func (self *Driver) State() hardware.InitState { return self.reinit.State() }

func (self *Driver) open() (gpio.Eventer, error) {
	chip, err := self.chipf()
	if err != nil {
		return nil, errors.Annotate(err, "button chip")
	}
	ev, err := chip.GetLineEvent(self.cfg.Pin, 0, gpio.GPIOEVENT_REQUEST_BOTH_EDGES, consumerTag)
	if err != nil {
		return nil, errors.Annotatef(err, "button pin=%d", self.cfg.Pin)
	}
	return ev, nil
}

func (self *Driver) spawnLoop(ev gpio.Eventer) {
	if !self.alive.Add(1) {
		_ = ev.Close()
		return
	}
	go func() {
		defer self.alive.Done()
		defer ev.Close()
		self.loop(ev)
	}()
}

func (self *Driver) loop(ev gpio.Eventer) {
	m := machine{
		longPress:    time.Duration(self.cfg.LongPressMs) * time.Millisecond,
		factoryReset: time.Duration(self.cfg.FactoryResetMs) * time.Millisecond,
	}
	for self.alive.IsRunning() {
		ed, err := ev.Wait(self.poll)
		now := time.Now()
		switch {
		case err == nil:
			falling := ed.ID == gpio.GPIOEVENT_EVENT_FALLING_EDGE
			self.fire(m.edge(falling, now))
		case err == gpio.ErrTimeout:
			self.fire(m.tick(now))
		case gpio.IsClosed(err):
			return
		default:
			// transient read failure: keep the session, try again
			self.log.Error(errors.Annotate(err, "button event"))
			time.Sleep(self.poll)
		}
	}
}

func (self *Driver) fire(a action) {
	if a == actNone {
		return
	}
	self.mu.Lock()
	var f func()
	switch a {
	case actTap:
		f = self.onTap
	case actLongPress:
		f = self.onLongPress
	case actLongPressReady:
		f = self.onReady
	case actFactoryReset:
		f = self.onFactoryReset
	}
	self.mu.Unlock()
	self.log.Debugf("button action=%s", a.String())
	if f == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			self.log.Errorf("button callback=%s panic: %v", a.String(), r)
		}
	}()
	f()
}
