// Package printer turns styled-text and graphics operations into one
// monochrome raster per print job.
//
// Content modules only see the Print* API. Operations accumulate in a
// buffer; Flush composes them top to bottom on a single canvas, rotates it
// for the tear-off-first print head and hands it to the transport in one
// raster command.
package printer

import (
	"fmt"
	"sync"

	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"

	"github.com/travmiller/paper-console-sub000/hardware/escpos"
	"github.com/travmiller/paper-console-sub000/log2"
)

const (
	DefaultWidth     = 384 // 58mm head
	DefaultOpCeiling = 256

	DefaultMoonSize   = 128
	DefaultQRSize     = 168
	DefaultMazeCell   = 12
	DefaultSudokuCell = 24
)

type Config struct {
	WidthDots int `hcl:"width_dots"`
	OpCeiling int `hcl:"op_ceiling"`
}

// Devicer is the transport seam: escpos.Port on hardware, Mock in tests.
type Devicer interface {
	Raster(width, height int, pix []byte) error
	Feed(lines int) error
}

type Printer struct {
	log     *log2.Log
	dev     Devicer
	width   int
	ceiling int

	mu        sync.Mutex
	ops       []op
	maxLines  int
	lineCount int // text lines appended since Reset
	truncated bool
}

func New(cfg *Config, log *log2.Log, dev Devicer) *Printer {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.WidthDots == 0 {
		c.WidthDots = DefaultWidth
	}
	if c.OpCeiling == 0 {
		c.OpCeiling = DefaultOpCeiling
	}
	return &Printer{
		log:     log,
		dev:     dev,
		width:   c.WidthDots,
		ceiling: c.OpCeiling,
	}
}

func (self *Printer) Width() int { return self.width }

// Reset clears the buffer and sets the truncation budget for the next job.
// maxLines=0 means unlimited.
func (self *Printer) Reset(maxLines int) {
	self.mu.Lock()
	self.ops = nil
	self.maxLines = maxLines
	self.lineCount = 0
	self.truncated = false
	self.mu.Unlock()
}

func (self *Printer) PrintHeader(text string)    { self.printStyled(text, StyleHeader) }
func (self *Printer) PrintSubheader(text string) { self.printStyled(text, StyleSubheader) }
func (self *Printer) PrintBody(text string)      { self.printStyled(text, StyleBody) }
func (self *Printer) PrintCaption(text string)   { self.printStyled(text, StyleCaption) }
func (self *Printer) PrintBold(text string)      { self.printStyled(text, StyleBold) }

// PrintLine emits one body line verbatim: no word wrap, clipped at the
// right edge. For preformatted content like score tables.
func (self *Printer) PrintLine(text string) {
	text = escpos.Fold(text)
	self.append(opText{lines: []string{text}, style: StyleBody})
}

func (self *Printer) printStyled(text string, style Style) {
	text = escpos.Fold(text)
	lines := wrap(text, self.maxChars(style))
	if len(lines) == 0 {
		return
	}
	self.append(opText{lines: lines, style: style})
}

// PrintBox draws text centered inside a bordered box across the full width.
func (self *Printer) PrintBox(text string, style Style) {
	text = escpos.Fold(text)
	boxChars := (self.width - 2*marginX - 2*(boxBorder+boxPad)) / metricsFor(style).advance
	lines := wrap(text, boxChars)
	if len(lines) == 0 {
		return
	}
	self.append(opBox{lines: lines, style: style, pad: boxPad, border: boxBorder})
}

// PrintQR renders data as a QR symbol. size is the square side in dots;
// fixed forces exactly that side, otherwise the symbol renders at its
// natural module grid scaled to at most size.
func (self *Printer) PrintQR(data string, size int, level qrcode.RecoveryLevel, fixed bool) {
	if size <= 0 {
		size = DefaultQRSize
	}
	qr, err := qrcode.New(data, level)
	if err != nil {
		// degrade this one operation, the job continues
		self.log.Error(errors.Annotate(err, "print qr"))
		return
	}
	qr.DisableBorder = true
	side := size
	if !fixed {
		modules := len(qr.Bitmap())
		scale := size / modules
		if scale < 1 {
			scale = 1
		}
		side = modules * scale
	}
	if side > self.width {
		side = self.width
	}
	self.append(opQR{qr: qr, side: side})
}

// PrintMoonPhase draws the moon at the given day of the 28-day cycle.
func (self *Printer) PrintMoonPhase(phase float64, size int) {
	if size <= 0 {
		size = DefaultMoonSize
	}
	if size > self.width {
		size = self.width
	}
	self.append(opMoon{phase: phase, size: size})
}

// PrintMaze draws a wall/path grid with entrance and exit markers.
func (self *Printer) PrintMaze(walls [][]bool, cell int) {
	if len(walls) == 0 || len(walls[0]) == 0 {
		self.log.Errorf("print maze: empty grid")
		return
	}
	if cell <= 0 {
		cell = DefaultMazeCell
	}
	if w := len(walls[0]) * cell; w > self.width {
		cell = self.width / len(walls[0])
	}
	self.append(opMaze{walls: walls, cell: cell})
}

// PrintSudoku draws a 9x9 grid, zero cells left blank.
func (self *Printer) PrintSudoku(grid [sudokuCells][sudokuCells]uint8, cell int) {
	if cell <= 0 {
		cell = DefaultSudokuCell
	}
	if w := sudokuCells*cell + 2; w > self.width {
		cell = (self.width - 2) / sudokuCells
	}
	self.append(opSudoku{grid: grid, cell: cell})
}

// Feed adds blank vertical space measured in body text lines.
func (self *Printer) Feed(lines int) {
	if lines <= 0 {
		return
	}
	self.append(opFeed{lines: lines})
}

// MaxLinesExceeded reports whether appended text already overflows the
// truncation budget; modules use it to stop generating early.
func (self *Printer) MaxLinesExceeded() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.maxLines > 0 && self.lineCount > self.maxLines
}

// WasTruncated reports whether the last Flush cut the job short.
func (self *Printer) WasTruncated() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.truncated
}

// Flush renders all buffered operations and transmits them as one raster.
func (self *Printer) Flush() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.flushLocked()
}

func (self *Printer) append(o op) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.ops) >= self.ceiling {
		// bound memory regardless of caller discipline
		self.log.Infof("print buffer ceiling=%d force flush", self.ceiling)
		if err := self.flushLocked(); err != nil {
			self.log.Error(errors.Annotate(err, "ceiling flush"))
		}
	}
	self.ops = append(self.ops, o)
	self.lineCount += o.textLines()
}

func (self *Printer) flushLocked() error {
	ops := self.ops
	self.ops = nil
	if self.maxLines > 0 {
		kept, total := 0, 0
		cut := -1
		for i, o := range ops {
			l := o.textLines()
			total += l
			if cut < 0 && kept+l > self.maxLines {
				cut = i
				continue
			}
			if cut < 0 {
				kept += l
			}
		}
		if cut >= 0 {
			ops = append(append([]op{}, ops[:cut]...), opText{
				lines: []string{fmt.Sprintf("-- TRUNCATED (%d/%d) --", kept, total)},
				style: StyleBody,
			})
			self.truncated = true
		}
	}
	if len(ops) == 0 {
		return nil
	}

	totalH := 0
	for _, o := range ops {
		totalH += o.height()
	}
	if totalH <= 0 {
		return nil
	}

	bm := NewBitmap(self.width, totalH)
	y := 0
	for _, o := range ops {
		self.drawIsolated(bm, y, o)
		y += o.height()
	}
	bm.Rotate180()
	return errors.Annotate(self.dev.Raster(bm.W, bm.H, bm.Pix), "flush")
}

// drawIsolated keeps one bad operation from killing the whole receipt.
func (self *Printer) drawIsolated(bm *Bitmap, y int, o op) {
	defer func() {
		if r := recover(); r != nil {
			self.log.Errorf("print op %T at y=%d panic: %v", o, y, r)
		}
	}()
	if err := drawOp(bm, y, o); err != nil {
		self.log.Error(errors.Annotatef(err, "print op %T at y=%d", o, y))
	}
}

func (self *Printer) maxChars(style Style) int {
	return (self.width - 2*marginX) / metricsFor(style).advance
}
