package escpos

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travmiller/paper-console-sub000/log2"
)

// fakeDev records writes and plays back canned status responses.
type fakeDev struct {
	wrote   bytes.Buffer
	replies []byte
	failAll bool
}

func (f *fakeDev) Write(b []byte) (int, error) {
	if f.failAll {
		return 0, assert.AnError
	}
	return f.wrote.Write(b)
}

func (f *fakeDev) Read(b []byte) (int, error) {
	if f.failAll || len(f.replies) == 0 {
		return 0, nil // tarm/serial read timeout looks like n=0
	}
	b[0] = f.replies[0]
	f.replies = f.replies[1:]
	return 1, nil
}

func (f *fakeDev) Close() error { return nil }

func TestPackRaster(t *testing.T) {
	t.Parallel()

	// 10x2: width packs to 2 bytes per row, pad bits stay blank
	pix := make([]byte, 10*2)
	pix[0] = 1     // row 0 x=0 -> 0x80
	pix[9] = 1     // row 0 x=9 -> second byte 0x40
	pix[10+7] = 1  // row 1 x=7 -> 0x01
	buf := appendPacked(nil, 10, 2, pix)
	assert.Equal(t, []byte{0x80, 0x40, 0x01, 0x00}, buf)
}

func TestRasterCommandFraming(t *testing.T) {
	t.Parallel()

	dev := &fakeDev{}
	p := NewDevice(dev, log2.NewTest(t, log2.LDebug))
	pix := make([]byte, 8*3)
	pix[0] = 1
	require.NoError(t, p.Raster(8, 3, pix))
	wire := dev.wrote.Bytes()
	// GS v 0 0, width=1 byte, height=3 rows
	assert.Equal(t, []byte{0x1d, 0x76, 0x30, 0x00, 0x01, 0x00, 0x03, 0x00}, wire[:8])
	assert.Equal(t, []byte{0x80, 0x00, 0x00}, wire[8:])
}

func TestStatusDefaultsPermissive(t *testing.T) {
	t.Parallel()

	dev := &fakeDev{failAll: true}
	p := NewDevice(dev, log2.NewTest(t, log2.LDebug))
	assert.True(t, p.Ready(), "I/O error must report ready")
	assert.Equal(t, PaperAdequate, p.Paper())
}

func TestStatusBits(t *testing.T) {
	t.Parallel()

	dev := &fakeDev{replies: []byte{0x08, 0x00, 0x60, 0x0c, 0x00}}
	p := NewDevice(dev, log2.NewTest(t, log2.LDebug))
	assert.False(t, p.Ready())          // offline bit set
	assert.True(t, p.Ready())           // clear
	assert.Equal(t, PaperOut, p.Paper())
	assert.Equal(t, PaperNearEnd, p.Paper())
	assert.Equal(t, PaperAdequate, p.Paper())
}

func TestDegradedSink(t *testing.T) {
	t.Parallel()

	p := NewSink(log2.NewTest(t, log2.LDebug))
	assert.True(t, p.Degraded())
	assert.NoError(t, p.Raster(8, 1, make([]byte, 8)))
	assert.NoError(t, p.Feed(2))
	assert.NoError(t, p.PrintText("no hardware"))
	assert.True(t, p.Ready())
	assert.Equal(t, PaperAdequate, p.Paper())
	assert.NoError(t, p.Close())
}

func TestFeed(t *testing.T) {
	t.Parallel()

	dev := &fakeDev{}
	p := NewDevice(dev, log2.NewTest(t, log2.LDebug))
	require.NoError(t, p.Feed(3))
	assert.Equal(t, []byte{0x1b, 0x64, 0x03}, dev.wrote.Bytes())
	dev.wrote.Reset()
	require.NoError(t, p.Feed(0))
	assert.Empty(t, dev.wrote.Bytes())
}

func TestClear(t *testing.T) {
	t.Parallel()

	dev := &fakeDev{}
	p := NewDevice(dev, log2.NewTest(t, log2.LDebug))
	require.NoError(t, p.Clear())
	assert.Equal(t, []byte{0x18, 0x1b, 0x40, 0x1b, 0x74, 0x00}, dev.wrote.Bytes())
}

func TestFold(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, out string }{
		{"plain ascii", "plain ascii"},
		{"curly “quotes” and ’apostrophe’", `curly "quotes" and 'apostrophe'`},
		{"em—dash … 25°", "em--dash ... 25deg"},
		{"drop ☃ unknown", "drop  unknown"},
		{"keep\nnewline\ttab", "keep\nnewline\ttab"},
		{"€9 ½ price", "EUR9 1/2 price"},
	}
	for _, c := range cases {
		assert.Equal(t, c.out, Fold(c.in), "input=%q", c.in)
	}
}

func TestTranslateFallsBackToFold(t *testing.T) {
	t.Parallel()

	p := NewSink(log2.NewTest(t, log2.LDebug))
	// sink has no translator configured
	assert.Equal(t, []byte(`curly "quotes"`), p.Translate("curly “quotes”"))
}
