package printer

import (
	"image"
	"image/color"
	"strings"
)

// Bitmap is the monochrome canvas print jobs are composed on: one byte per
// pixel, nonzero = ink. It implements draw.Image so x/image font drawers
// can render straight into it.
type Bitmap struct {
	W, H int
	Pix  []byte
}

func NewBitmap(w, h int) *Bitmap {
	return &Bitmap{W: w, H: h, Pix: make([]byte, w*h)}
}

func (b *Bitmap) ColorModel() color.Model { return color.GrayModel }
func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.W, b.H) }

func (b *Bitmap) At(x, y int) color.Color {
	if b.Get(x, y) {
		return color.Gray{Y: 0}
	}
	return color.Gray{Y: 0xff}
}

func (b *Bitmap) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return
	}
	g := color.GrayModel.Convert(c).(color.Gray)
	if g.Y < 0x80 {
		b.Pix[y*b.W+x] = 1
	} else {
		b.Pix[y*b.W+x] = 0
	}
}

func (b *Bitmap) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return false
	}
	return b.Pix[y*b.W+x] != 0
}

func (b *Bitmap) Mark(x, y int) {
	if x < 0 || y < 0 || x >= b.W || y >= b.H {
		return
	}
	b.Pix[y*b.W+x] = 1
}

// Rotate180 flips the canvas in place. The print head reads tear-off-first,
// content is assembled bottom-to-top relative to reading order.
func (b *Bitmap) Rotate180() {
	n := len(b.Pix)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		b.Pix[i], b.Pix[j] = b.Pix[j], b.Pix[i]
	}
}

func (b *Bitmap) fillRect(x0, y0, x1, y1 int, ink bool) {
	v := byte(0)
	if ink {
		v = 1
	}
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > b.W {
		x1 = b.W
	}
	if y1 > b.H {
		y1 = b.H
	}
	for y := y0; y < y1; y++ {
		row := b.Pix[y*b.W : (y+1)*b.W]
		for x := x0; x < x1; x++ {
			row[x] = v
		}
	}
}

// blitScaled copies src into b at (dx, dy) magnifying each pixel to
// scale×scale blocks.
func (b *Bitmap) blitScaled(src *Bitmap, dx, dy, scale int) {
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			if !src.Get(x, y) {
				continue
			}
			b.fillRect(dx+x*scale, dy+y*scale, dx+(x+1)*scale, dy+(y+1)*scale, true)
		}
	}
}

// ASCIIArt renders the canvas for terminal preview, two columns per dot.
func ASCIIArt(width, height int, pix []byte) string {
	b := strings.Builder{}
	b.Grow((width*2 + 1) * height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if pix[y*width+x] != 0 {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
