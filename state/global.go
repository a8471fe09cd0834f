// Package state owns runtime configuration and lazy construction of the
// shared hardware drivers.
package state

import (
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	gpio "github.com/temoto/gpio-cdev-go"

	"github.com/travmiller/paper-console-sub000/hardware/button"
	"github.com/travmiller/paper-console-sub000/hardware/dial"
	"github.com/travmiller/paper-console-sub000/hardware/escpos"
	"github.com/travmiller/paper-console-sub000/helpers"
	"github.com/travmiller/paper-console-sub000/log2"
	"github.com/travmiller/paper-console-sub000/printer"
)

const chipConsumer = "paper-console"

// Global is passed to everything below main. Drivers construct on first
// use so the CLI tools only touch the hardware they ask for.
type Global struct {
	Alive  *alive.Alive
	Config *Config
	Log    *log2.Log

	chipMu sync.Mutex
	chip   gpio.Chiper

	buttonOnce  sync.Once
	buttonDrv   *button.Driver
	dialOnce    sync.Once
	dialDrv     *dial.Driver
	printerOnce sync.Once
	port        *escpos.Port
	prn         *printer.Printer
}

func NewGlobal(log *log2.Log, cfg *Config) *Global {
	return &Global{
		Alive:  alive.NewAlive(),
		Config: cfg,
		Log:    log,
	}
}

// Chip opens the gpiochip character device once and caches it. A failed
// open is not cached, the next caller retries.
func (self *Global) Chip() (gpio.Chiper, error) {
	self.chipMu.Lock()
	defer self.chipMu.Unlock()
	if self.chip != nil {
		return self.chip, nil
	}
	chip, err := gpio.Open(self.Config.Hardware.Chip, chipConsumer)
	if err != nil {
		return nil, errors.Annotatef(err, "gpio chip=%s", self.Config.Hardware.Chip)
	}
	self.chip = chip
	return self.chip, nil
}

// Button returns the push-button driver, started on first call. Start
// never fails, a missing line shows up in Healthy().
func (self *Global) Button() *button.Driver {
	self.buttonOnce.Do(func() {
		self.buttonDrv = button.New(&self.Config.Hardware.Button, self.Log)
		self.buttonDrv.Start(self.Chip)
	})
	return self.buttonDrv
}

// Dial returns the rotary dial driver, started on first call.
func (self *Global) Dial() *dial.Driver {
	self.dialOnce.Do(func() {
		self.dialDrv = dial.New(&self.Config.Hardware.Dial, self.Log)
		self.dialDrv.Start(self.Chip)
	})
	return self.dialDrv
}

// Printer returns the shared print buffer over the serial transport,
// both constructed on first call. A missing serial device degrades the
// transport to a sink, printing still "works".
func (self *Global) Printer() *printer.Printer {
	self.printerOnce.Do(func() {
		self.port = escpos.Open(&self.Config.Hardware.Printer, self.Log)
		self.prn = printer.New(&self.Config.Print, self.Log, self.port)
	})
	return self.prn
}

// Port exposes the transport for status queries; constructs the printer
// stack if needed.
func (self *Global) Port() *escpos.Port {
	self.Printer()
	return self.port
}

// Stop shuts down everything that was constructed. Drivers stop in
// parallel, the shared chip closes last.
func (self *Global) Stop() error {
	self.Alive.Stop()
	wg := sync.WaitGroup{}
	ch := make(chan error, 3)
	if self.buttonDrv != nil {
		wg.Add(1)
		go helpers.WrapErrChan(&wg, ch, func() error { self.buttonDrv.Stop(); return nil })
	}
	if self.dialDrv != nil {
		wg.Add(1)
		go helpers.WrapErrChan(&wg, ch, func() error { self.dialDrv.Stop(); return nil })
	}
	if self.port != nil {
		wg.Add(1)
		go helpers.WrapErrChan(&wg, ch, func() error {
			return errors.Annotate(self.port.Close(), "printer close")
		})
	}
	wg.Wait()
	close(ch)
	err := helpers.FoldErrChan(ch)

	self.chipMu.Lock()
	if self.chip != nil {
		err = helpers.FoldErrors([]error{err, errors.Annotate(self.chip.Close(), "chip close")})
		self.chip = nil
	}
	self.chipMu.Unlock()
	self.Alive.Wait()
	return err
}
