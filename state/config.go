package state

import (
	"os"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/travmiller/paper-console-sub000/hardware/button"
	"github.com/travmiller/paper-console-sub000/hardware/dial"
	"github.com/travmiller/paper-console-sub000/hardware/escpos"
	"github.com/travmiller/paper-console-sub000/log2"
	"github.com/travmiller/paper-console-sub000/printer"
)

type Config struct {
	Hardware struct {
		Chip    string        `hcl:"chip"` // gpiochip device path
		Button  button.Config `hcl:"button"`
		Dial    dial.Config   `hcl:"dial"`
		Printer escpos.Config `hcl:"printer"`
	} `hcl:"hardware"`

	Print printer.Config `hcl:"print"`

	UI struct {
		DebounceMs            int `hcl:"debounce_ms"`      // min gap between print jobs
		QuickActionsTimeoutMs int `hcl:"quick_actions_timeout_ms"`
		MaxLines              int `hcl:"max_lines"` // per-job truncation budget, 0 = unlimited
	} `hcl:"ui"`

	LogDebug bool `hcl:"log_debug"`
}

const (
	DefaultChip                = "/dev/gpiochip0"
	DefaultDebounceMs          = 3000
	DefaultQuickActionsTimeout = 30000
)

func (c *Config) normalize() {
	if c.Hardware.Chip == "" {
		c.Hardware.Chip = DefaultChip
	}
	if c.UI.DebounceMs == 0 {
		c.UI.DebounceMs = DefaultDebounceMs
	}
	if c.UI.QuickActionsTimeoutMs == 0 {
		c.UI.QuickActionsTimeoutMs = DefaultQuickActionsTimeout
	}
}

func ReadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "config path=%s", path)
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	c := &Config{}
	if err := hcl.Unmarshal(b, c); err != nil {
		return nil, errors.Annotate(err, "config parse")
	}
	c.normalize()
	return c, nil
}

func MustReadConfig(log *log2.Log, path string) *Config {
	c, err := ReadConfig(path)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
