package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
hardware {
  chip = "/dev/gpiochip1"
  button {
    pin = 17
    long_press_ms = 4000
  }
  dial {
    pins = [5, 6, 13, 19, 26, 16, 20, 21]
  }
  printer {
    device = "/dev/ttyAMA0"
    baud = 19200
  }
}
print {
  width_dots = 576
}
ui {
  max_lines = 400
}
log_debug = true
`

func TestParseConfig(t *testing.T) {
	t.Parallel()
	c, err := ParseConfig([]byte(testConfig))
	require.NoError(t, err)
	assert.Equal(t, "/dev/gpiochip1", c.Hardware.Chip)
	assert.Equal(t, uint32(17), c.Hardware.Button.Pin)
	assert.Equal(t, 4000, c.Hardware.Button.LongPressMs)
	assert.Equal(t, []uint32{5, 6, 13, 19, 26, 16, 20, 21}, c.Hardware.Dial.Pins)
	assert.Equal(t, "/dev/ttyAMA0", c.Hardware.Printer.Device)
	assert.Equal(t, 19200, c.Hardware.Printer.Baud)
	assert.Equal(t, 576, c.Print.WidthDots)
	assert.Equal(t, 400, c.UI.MaxLines)
	assert.True(t, c.LogDebug)
}

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()
	c, err := ParseConfig([]byte(``))
	require.NoError(t, err)
	assert.Equal(t, DefaultChip, c.Hardware.Chip)
	assert.Equal(t, DefaultDebounceMs, c.UI.DebounceMs)
	assert.Equal(t, DefaultQuickActionsTimeout, c.UI.QuickActionsTimeoutMs)
	assert.Zero(t, c.UI.MaxLines)
}

func TestParseConfigError(t *testing.T) {
	t.Parallel()
	_, err := ParseConfig([]byte(`hardware { broken`))
	require.Error(t, err)
}
