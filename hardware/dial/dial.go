// Package dial drives the 8-position rotary channel dial.
//
// The dial is a break-before-make switch: eight pull-up inputs, the selected
// contact grounds exactly one line. Polling is cheap and avoids chatter from
// the wiper travelling between contacts.
package dial

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	gpio "github.com/temoto/gpio-cdev-go"

	"github.com/travmiller/paper-console-sub000/hardware"
	"github.com/travmiller/paper-console-sub000/log2"
)

const (
	Positions   = 8
	DefaultPoll = 100 * time.Millisecond

	DefaultReinitAttempts = 5
	DefaultReinitDelay    = 30 * time.Second

	consumerTag = "console-dial"
)

type Config struct {
	Pins           []uint32 `hcl:"pins"` // exactly 8 offsets, position 1 first
	PollMs         int      `hcl:"poll_ms"`
	ReinitAttempts int      `hcl:"reinit_attempts"`
	ReinitDelaySec int      `hcl:"reinit_delay_sec"`
}

type ChipFunc func() (gpio.Chiper, error)

// PositionFunc receives the new position (1..8) on change.
type PositionFunc func(position uint8)

type listener struct {
	name string
	fun  PositionFunc
}

type Driver struct {
	alive  *alive.Alive
	log    *log2.Log
	cfg    Config
	poll   time.Duration
	reinit hardware.Reinit
	chipf  ChipFunc

	pos uint32 // atomic, 0 = not yet known

	mu        sync.Mutex
	listeners []listener
}

func New(cfg *Config, log *log2.Log) *Driver {
	c := *cfg
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
		Tag:      "dial",
		Attempts: c.ReinitAttempts,
		Delay:    time.Duration(c.ReinitDelaySec) * time.Second,
	}
	return self
}

// Subscribe registers a position-change listener. Listeners are notified
// synchronously from the poll loop in registration order; a panicking
// listener is logged and does not stop the others.
func (self *Driver) Subscribe(name string, fun PositionFunc) {
	self.mu.Lock()
	self.listeners = append(self.listeners, listener{name: name, fun: fun})
	self.mu.Unlock()
}

// Position returns the current channel 1..8, or 0 before the first
// successful poll.
func (self *Driver) Position() uint8 { return uint8(atomic.LoadUint32(&self.pos)) }

// Start never returns an error, see button.Driver.Start.
func (self *Driver) Start(chipf ChipFunc) {
	self.chipf = chipf
	lines, err := self.open()
	if err == nil {
		self.reinit.MarkReady()
		self.spawnLoop(lines)
		return
	}
	self.log.Error(errors.Annotate(err, "dial init"))
	if !self.alive.Add(1) {
		return
	}
	go func() {
		defer self.alive.Done()
		self.reinit.Run(self.alive, func() error {
			lines, err := self.open()
			if err != nil {
				return err
			}
			self.spawnLoop(lines)
			return nil
		})
	}()
}

func (self *Driver) Stop()                     { self.alive.Stop(); self.alive.Wait() }
func (self *Driver) Healthy() bool             { return self.reinit.Ready() }
func (self *Driver) State() hardware.InitState { return self.reinit.State() }

func (self *Driver) open() (gpio.Lineser, error) {
	if len(self.cfg.Pins) != Positions {
		return nil, errors.Errorf("config: dial pins=%v want %d offsets", self.cfg.Pins, Positions)
	}
	chip, err := self.chipf()
	if err != nil {
		return nil, errors.Annotate(err, "dial chip")
	}
	lines, err := chip.OpenLines(gpio.GPIOHANDLE_REQUEST_INPUT, consumerTag, self.cfg.Pins...)
	if err != nil {
		return nil, errors.Annotatef(err, "dial pins=%v", self.cfg.Pins)
	}
	return lines, nil
}

func (self *Driver) spawnLoop(lines gpio.Lineser) {
	if !self.alive.Add(1) {
		_ = lines.Close()
		return
	}
	go func() {
		defer self.alive.Done()
		defer lines.Close()
		self.loop(lines)
	}()
}

func (self *Driver) loop(lines gpio.Lineser) {
	tmr := time.NewTicker(self.poll)
	defer tmr.Stop()
	stopch := self.alive.StopChan()
	for self.alive.IsRunning() {
		data, err := lines.Read()
		if err != nil {
			if gpio.IsClosed(err) {
				return
			}
			// transient, keep last known position and retry
			self.log.Error(errors.Annotate(err, "dial read"))
		} else {
			self.observe(&data)
		}
		select {
		case <-tmr.C:
		case <-stopch:
			return
		}
	}
}

// observe picks the lowest line reading logic-low. A frame with no low line
// is the wiper mid-travel: keep the previous position.
func (self *Driver) observe(data *gpio.HandleData) {
	next := uint32(0)
	for i := 0; i < Positions; i++ {
		if data.Values[i] == 0 {
			next = uint32(i + 1)
			break
		}
	}
	if next == 0 {
		return
	}
	old := atomic.SwapUint32(&self.pos, next)
	if old == next {
		return
	}
	self.log.Debugf("dial position=%d", next)
	if old == 0 {
		// first valid frame sets the baseline silently
		return
	}
	self.notify(uint8(next))
}

func (self *Driver) notify(position uint8) {
	self.mu.Lock()
	subs := make([]listener, len(self.listeners))
	copy(subs, self.listeners)
	self.mu.Unlock()
	for _, sub := range subs {
		self.notifyOne(sub, position)
	}
}

func (self *Driver) notifyOne(sub listener, position uint8) {
	defer func() {
		if r := recover(); r != nil {
			self.log.Errorf("dial listener=%s position=%d panic: %v", sub.name, position, r)
		}
	}()
	sub.fun(position)
}
