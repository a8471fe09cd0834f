// Hardware smoke test: render the built-in test page to the configured
// printer, or preview it as terminal ASCII art with -ascii.
package main

import (
	"flag"
	"fmt"

	"github.com/juju/errors"

	"github.com/travmiller/paper-console-sub000/head"
	"github.com/travmiller/paper-console-sub000/log2"
	"github.com/travmiller/paper-console-sub000/printer"
	"github.com/travmiller/paper-console-sub000/state"
)

func main() {
	flagConfig := flag.String("config", "paper-console.hcl", "")
	flagASCII := flag.Bool("ascii", false, "render to stdout instead of hardware")
	flag.Parse()

	log := log2.NewStderr(log2.LDebug)
	log.SetFlags(log2.LInteractiveFlags)
	cfg := state.MustReadConfig(log, *flagConfig)

	if *flagASCII {
		dev := printer.NewMockDevice()
		p := printer.New(&cfg.Print, log, dev)
		render(log, p)
		if r, ok := dev.Last(); ok {
			fmt.Print(printer.ASCIIArt(r.W, r.H, r.Pix))
		}
		return
	}

	g := state.NewGlobal(log, cfg)
	defer func() {
		if err := g.Stop(); err != nil {
			log.Error(errors.ErrorStack(err))
		}
	}()
	p := g.Printer()
	if g.Port().Degraded() {
		log.Errorf("printer device=%s unavailable, nothing will come out", cfg.Hardware.Printer.Device)
	}
	render(log, p)
	log.Infof("done ready=%t paper=%s", g.Port().Ready(), g.Port().Paper())
}

func render(log *log2.Log, p *printer.Printer) {
	p.Reset(0)
	if err := head.TestPage(p); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	if err := p.Flush(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
