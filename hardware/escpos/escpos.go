// Package escpos talks to the thermal receipt printer over a serial line.
//
// Everything user-visible is shipped as one raster-graphics command per
// print job; text mode exists only for last-resort diagnostics. A missing
// port degrades to a no-op sink so the rest of the system keeps running
// without hardware attached.
package escpos

import (
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
	"github.com/tarm/serial"

	"github.com/travmiller/paper-console-sub000/log2"
)

const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 500 * time.Millisecond
	DefaultCodepage    = "latin1"

	// max raster width supported by the GS v 0 header
	maxWidthBytes = 0xffff
	maxHeightRows = 0xffff
)

// Wire commands. One-way except the two status queries.
var (
	cmdInit       = []byte{0x1b, 0x40}             // ESC @
	cmdCancel     = []byte{0x18}                   // CAN
	cmdStatus     = []byte{0x10, 0x04, 0x01}       // DLE EOT 1: printer status
	cmdPaper      = []byte{0x10, 0x04, 0x04}       // DLE EOT 4: paper sensors
	cmdFeed       = []byte{0x1b, 0x64}             // ESC d n
	cmdCodepage   = []byte{0x1b, 0x74}             // ESC t n
	cmdRasterHead = []byte{0x1d, 0x76, 0x30, 0x00} // GS v 0, normal density
)

// DLE EOT 1 response bits
const statusOfflineBit = 0x08

// DLE EOT 4 response bits
const (
	paperNearEndBits = 0x0c
	paperOutBits     = 0x60
)

type PaperStatus uint8

const (
	PaperAdequate PaperStatus = iota
	PaperNearEnd
	PaperOut
)

func (p PaperStatus) String() string {
	switch p {
	case PaperAdequate:
		return "adequate"
	case PaperNearEnd:
		return "near-end"
	case PaperOut:
		return "out"
	}
	return "unknown!"
}

type Config struct {
	Device        string `hcl:"device"`
	Baud          int    `hcl:"baud"`
	Codepage      string `hcl:"codepage"`      // go-charset name for text mode
	CodepageNum   int    `hcl:"codepage_num"`  // ESC t argument
	ReadTimeoutMs int    `hcl:"read_timeout_ms"`
}

type Port struct {
	log *log2.Log
	cfg Config

	mu  sync.Mutex
	dev io.ReadWriteCloser // nil when degraded
	tr  charset.Translator
}

// Open never fails: when the port is missing the result is a degraded
// no-op sink, reported via Degraded(), so callers can always print into it.
func Open(cfg *Config, log *log2.Log) *Port {
	c := *cfg
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.Codepage == "" {
		c.Codepage = DefaultCodepage
	}
	if c.ReadTimeoutMs == 0 {
		c.ReadTimeoutMs = int(DefaultReadTimeout / time.Millisecond)
	}
	self := &Port{log: log, cfg: c}

	if tr, err := charset.TranslatorTo(c.Codepage); err != nil {
		log.Error(errors.Annotatef(err, "printer codepage=%s", c.Codepage))
	} else {
		self.tr = tr
	}

	dev, err := serial.OpenPort(&serial.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		ReadTimeout: time.Duration(c.ReadTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Error(errors.Annotatef(err, "printer device=%s running without hardware", c.Device))
		return self
	}
	self.dev = dev
	if err := self.Init(); err != nil {
		log.Error(errors.Annotate(err, "printer init"))
	}
	return self
}

// NewSink returns a degraded port with no hardware, useful in tests and
// development.
func NewSink(log *log2.Log) *Port {
	return &Port{log: log, cfg: Config{Codepage: DefaultCodepage}}
}

// NewDevice wraps an existing stream, used by tests to fake the printer.
func NewDevice(dev io.ReadWriteCloser, log *log2.Log) *Port {
	return &Port{log: log, dev: dev, cfg: Config{Codepage: DefaultCodepage}}
}

func (self *Port) Degraded() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.dev == nil
}

func (self *Port) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.dev == nil {
		return nil
	}
	err := self.dev.Close()
	self.dev = nil
	return err
}

// Init issues hardware reset and codepage selection.
func (self *Port) Init() error {
	buf := make([]byte, 0, 5)
	buf = append(buf, cmdInit...)
	buf = append(buf, cmdCodepage...)
	buf = append(buf, byte(self.cfg.CodepageNum))
	return self.write(buf)
}

// Clear cancels any in-progress job and reinitializes the device.
func (self *Port) Clear() error {
	if err := self.write(cmdCancel); err != nil {
		return err
	}
	return self.Init()
}

// Raster transmits one monochrome image, pix is 1 byte per pixel row-major,
// nonzero = ink. Single command per job: per-command overhead is paid once
// and there are no seams between operations.
func (self *Port) Raster(width, height int, pix []byte) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	widthBytes := (width + 7) / 8
	if widthBytes > maxWidthBytes || height > maxHeightRows {
		return errors.Errorf("raster %dx%d exceeds wire format", width, height)
	}
	buf := make([]byte, 0, len(cmdRasterHead)+4+widthBytes*height)
	buf = append(buf, cmdRasterHead...)
	buf = append(buf,
		byte(widthBytes), byte(widthBytes>>8),
		byte(height), byte(height>>8))
	buf = appendPacked(buf, width, height, pix)
	return self.write(buf)
}

// appendPacked packs pixels MSB-first, 8 per byte, one row at a time.
func appendPacked(buf []byte, width, height int, pix []byte) []byte {
	widthBytes := (width + 7) / 8
	for y := 0; y < height; y++ {
		row := pix[y*width : (y+1)*width]
		for bx := 0; bx < widthBytes; bx++ {
			var b byte
			for bit := 0; bit < 8; bit++ {
				x := bx*8 + bit
				if x < width && row[x] != 0 {
					b |= 0x80 >> uint(bit)
				}
			}
			buf = append(buf, b)
		}
	}
	return buf
}

// Feed advances paper by whole text lines.
func (self *Port) Feed(lines int) error {
	if lines <= 0 {
		return nil
	}
	if lines > 0xff {
		lines = 0xff
	}
	return self.write(append(append([]byte{}, cmdFeed...), byte(lines)))
}

// Ready polls printer status. Any I/O trouble reports ready: failing open
// lets the caller retry a print instead of wedging on a flaky status line.
func (self *Port) Ready() bool {
	b, err := self.query(cmdStatus)
	if err != nil {
		self.log.Debugf("printer status query: %v", err)
		return true
	}
	return b&statusOfflineBit == 0
}

// Paper polls the paper sensors, defaulting to adequate on query failure.
func (self *Port) Paper() PaperStatus {
	b, err := self.query(cmdPaper)
	if err != nil {
		self.log.Debugf("printer paper query: %v", err)
		return PaperAdequate
	}
	switch {
	case b&paperOutBits != 0:
		return PaperOut
	case b&paperNearEndBits != 0:
		return PaperNearEnd
	}
	return PaperAdequate
}

// PrintText is the diagnostics path: sanitized, codepage-translated text
// straight to the device, bypassing the raster engine.
func (self *Port) PrintText(s string) error {
	buf := self.Translate(Fold(s))
	buf = append(buf, '\n')
	return self.write(buf)
}

// Translate converts text to the configured hardware codepage. Untranslatable
// input falls back to the ASCII fold so the device never receives bytes that
// could toggle its encoding modes.
func (self *Port) Translate(s string) []byte {
	self.mu.Lock()
	tr := self.tr
	self.mu.Unlock()
	if tr != nil {
		if _, tb, err := tr.Translate([]byte(s), true); err == nil {
			// translator reuses its internal buffer
			return append([]byte(nil), tb...)
		}
	}
	return []byte(Fold(s))
}

func (self *Port) write(buf []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.dev == nil {
		return nil
	}
	_, err := self.dev.Write(buf)
	return errors.Annotate(err, "printer write")
}

// query sends a real-time status command and reads exactly one response
// byte within the port read timeout.
func (self *Port) query(cmd []byte) (byte, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.dev == nil {
		return 0, errors.New("degraded")
	}
	if _, err := self.dev.Write(cmd); err != nil {
		return 0, errors.Annotate(err, "status write")
	}
	var one [1]byte
	n, err := self.dev.Read(one[:])
	if err != nil {
		return 0, errors.Annotate(err, "status read")
	}
	if n != 1 {
		return 0, errors.Errorf("status timeout n=%d", n)
	}
	return one[0], nil
}
