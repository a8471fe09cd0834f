// Daemon entry point: read config, start hardware drivers, wire the head,
// notify systemd, stop cleanly on signal.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"

	"github.com/travmiller/paper-console-sub000/head"
	"github.com/travmiller/paper-console-sub000/log2"
	"github.com/travmiller/paper-console-sub000/state"
)

var log = log2.NewStderr(log2.LInfo)

func main() {
	flagConfig := flag.String("config", "paper-console.hcl", "")
	flagDebug := flag.Bool("debug", false, "")
	flag.Parse()

	if sdnotify("READY=0\nSTATUS=starting") {
		// under systemd the journal stamps lines, drop our timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}

	cfg := state.MustReadConfig(log, *flagConfig)
	if cfg.LogDebug || *flagDebug {
		log.SetLevel(log2.LDebug)
	}
	log.Debugf("config=%+v", cfg)

	g := state.NewGlobal(log, cfg)
	sys := head.New(head.Config{
		DebounceMs:            cfg.UI.DebounceMs,
		QuickActionsTimeoutMs: cfg.UI.QuickActionsTimeoutMs,
		MaxLines:              cfg.UI.MaxLines,
	}, log, g.Printer(), g.Port(), g.Dial(), g.Button())
	if err := sys.RegisterChannel(1, "test page", head.TestPage); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	sys.Start()

	sdnotify(daemon.SdNotifyReady)
	log.Infof("running dial=%s button=%s printer-degraded=%t",
		g.Dial().State(), g.Button().State(), g.Port().Degraded())

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigch:
		log.Infof("signal=%v stopping", sig)
	case <-g.Alive.StopChan():
	}
	sdnotify(daemon.SdNotifyStopping)

	sys.Stop()
	if err := g.Stop(); err != nil {
		log.Error(errors.ErrorStack(err))
	}
	log.Info("stopped")
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
