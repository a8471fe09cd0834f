// Interactive development REPL: drive the whole runtime with a simulated
// dial and button, preview rasters as ASCII art, no hardware required.
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"

	"github.com/travmiller/paper-console-sub000/hardware"
	"github.com/travmiller/paper-console-sub000/hardware/dial"
	"github.com/travmiller/paper-console-sub000/hardware/escpos"
	"github.com/travmiller/paper-console-sub000/head"
	"github.com/travmiller/paper-console-sub000/helpers/cli"
	"github.com/travmiller/paper-console-sub000/log2"
	"github.com/travmiller/paper-console-sub000/printer"
)

type simDial struct {
	pos  uint8
	subs []dial.PositionFunc
}

func (s *simDial) Subscribe(name string, fun dial.PositionFunc) { s.subs = append(s.subs, fun) }
func (s *simDial) Position() uint8                              { return s.pos }
func (s *simDial) State() hardware.InitState                    { return hardware.InitReady }

func (s *simDial) set(pos uint8) {
	old := s.pos
	s.pos = pos
	if old == pos {
		return
	}
	for _, fun := range s.subs {
		fun(pos)
	}
}

type simButton struct {
	tap, long, reset, ready func()
}

func (s *simButton) SetTapFunc(f func())            { s.tap = f }
func (s *simButton) SetLongPressFunc(f func())      { s.long = f }
func (s *simButton) SetFactoryResetFunc(f func())   { s.reset = f }
func (s *simButton) SetLongPressReadyFunc(f func()) { s.ready = f }
func (s *simButton) State() hardware.InitState      { return hardware.InitReady }

type simPort struct{ feeds int }

func (s *simPort) Degraded() bool            { return false }
func (s *simPort) Ready() bool               { return true }
func (s *simPort) Paper() escpos.PaperStatus { return escpos.PaperAdequate }
func (s *simPort) Feed(lines int) error {
	s.feeds += lines
	fmt.Printf("(feed %d)\n", lines)
	return nil
}

var suggests = []prompt.Suggest{
	{Text: "dial", Description: "dial N - turn the dial to position 1..8"},
	{Text: "tap", Description: "short button press"},
	{Text: "hold", Description: "hold SECONDS - press and hold"},
	{Text: "print", Description: "print TEXT - append body text"},
	{Text: "header", Description: "header TEXT - append header text"},
	{Text: "qr", Description: "qr TEXT - append a QR symbol"},
	{Text: "moon", Description: "moon DAY - append moon phase, day 0..28"},
	{Text: "flush", Description: "render the pending buffer"},
	{Text: "last", Description: "show the last raster as ASCII art"},
	{Text: "status", Description: "runtime status"},
	{Text: "help", Description: "this text"},
}

func main() {
	log := log2.NewStderr(log2.LDebug)
	log.SetFlags(log2.LInteractiveFlags)

	dev := printer.NewMockDevice()
	prn := printer.New(nil, log, dev)
	d := &simDial{pos: 1}
	b := &simButton{}
	port := &simPort{}
	sys := head.New(head.Config{DebounceMs: 1}, log, prn, port, d, b)
	sys.Start()
	prn.Reset(0)

	exec := func(line string) {
		word, arg := line, ""
		if i := strings.IndexByte(line, ' '); i >= 0 {
			word, arg = line[:i], strings.TrimSpace(line[i+1:])
		}
		switch word {
		case "help":
			for _, s := range suggests {
				fmt.Printf("%-8s %s\n", s.Text, s.Description)
			}
		case "dial":
			n, err := strconv.ParseUint(arg, 10, 8)
			if err != nil || n < 1 || n > dial.Positions {
				fmt.Println("dial wants 1..8")
				return
			}
			d.set(uint8(n))
		case "tap":
			b.tap()
			settle(dev)
		case "hold":
			sec, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				fmt.Println("hold wants seconds")
				return
			}
			press(b, sec)
			settle(dev)
		case "print":
			prn.PrintBody(arg)
		case "header":
			prn.PrintHeader(arg)
		case "qr":
			prn.PrintQR(arg, 0, 1, false)
		case "moon":
			day, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				fmt.Println("moon wants day 0..28")
				return
			}
			prn.PrintMoonPhase(day, 0)
		case "flush":
			if err := prn.Flush(); err != nil {
				fmt.Println("flush:", err)
				return
			}
			show(dev)
			prn.Reset(0)
		case "last":
			show(dev)
		case "status":
			fmt.Printf("dial=%d selection=%q feeds=%d rasters=%d\n",
				d.Position(), sys.Selection().Owner(), port.feeds, len(dev.Rasters()))
		case "":
		default:
			fmt.Println("unknown command, try help")
		}
	}
	complete := func(doc prompt.Document) []prompt.Suggest {
		return prompt.FilterHasPrefix(suggests, doc.GetWordBeforeCursor(), true)
	}
	cli.MainLoop("console", exec, complete)
	sys.Stop()
}

// press replays the classification the real driver would produce for a
// hold of the given duration.
func press(b *simButton, sec float64) {
	switch {
	case sec >= 15:
		b.ready()
		b.reset()
	case sec >= 5:
		b.ready()
		b.long()
	default:
		b.tap()
	}
}

// settle waits briefly for the spawned print job to land in the mock.
func settle(dev *printer.MockDevice) {
	before := len(dev.Rasters())
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(dev.Rasters()) > before {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	show(dev)
}

// show previews the newest raster downscaled 4x, any ink in a block marks it.
func show(dev *printer.MockDevice) {
	r, ok := dev.Last()
	if !ok {
		fmt.Println("(no raster yet)")
		return
	}
	const f = 4
	var sb strings.Builder
	for y := 0; y+f <= r.H; y += f {
		for x := 0; x+f <= r.W; x += f {
			ink := false
			for dy := 0; dy < f && !ink; dy++ {
				for dx := 0; dx < f; dx++ {
					if r.Pix[(y+dy)*r.W+x+dx] != 0 {
						ink = true
						break
					}
				}
			}
			if ink {
				sb.WriteByte('#')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Printf("raster %dx%d\n%s", r.W, r.H, sb.String())
}
