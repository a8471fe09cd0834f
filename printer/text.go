package printer

import (
	"image"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

type Style uint8

const (
	StyleBody Style = iota
	StyleHeader
	StyleSubheader
	StyleCaption
	StyleBold
)

func (s Style) String() string {
	switch s {
	case StyleBody:
		return "body"
	case StyleHeader:
		return "header"
	case StyleSubheader:
		return "subheader"
	case StyleCaption:
		return "caption"
	case StyleBold:
		return "bold"
	}
	return "unknown!"
}

// All faces are monospace, layout is pure arithmetic: advance per glyph,
// fixed line height per style.
type styleMetrics struct {
	face    font.Face
	scale   int
	advance int // dots per glyph after scaling
	glyphH  int // dots per glyph after scaling
	lineH   int // dots per text line
}

func metricsFor(style Style) styleMetrics {
	switch style {
	case StyleHeader:
		return styleMetrics{face: inconsolata.Bold8x16, scale: 2, advance: 16, glyphH: 32, lineH: 40}
	case StyleSubheader:
		return styleMetrics{face: inconsolata.Bold8x16, scale: 1, advance: 8, glyphH: 16, lineH: 22}
	case StyleCaption:
		return styleMetrics{face: basicfont.Face7x13, scale: 1, advance: 7, glyphH: 13, lineH: 16}
	case StyleBold:
		return styleMetrics{face: inconsolata.Bold8x16, scale: 1, advance: 8, glyphH: 16, lineH: 20}
	}
	return styleMetrics{face: inconsolata.Regular8x16, scale: 1, advance: 8, glyphH: 16, lineH: 20}
}

// LineHeight returns the dot height of one text line in the given style.
func LineHeight(style Style) int { return metricsFor(style).lineH }

// wrap splits text into render lines of at most maxChars glyphs,
// breaking on word boundaries, hard-splitting overlong words.
func wrap(text string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = 1
	}
	out := make([]string, 0, 4)
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range strings.Fields(para) {
			for len(word) > maxChars {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				out = append(out, word[:maxChars])
				word = word[maxChars:]
			}
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= maxChars:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" || len(strings.Fields(para)) == 0 {
			out = append(out, line)
		}
	}
	return out
}

// drawTextLine renders one line at (x, y) top-left. Scaled styles render at
// native size first, then magnify; thermal dots are big enough that nearest
// neighbor looks right.
func drawTextLine(dst *Bitmap, x, y int, line string, m styleMetrics) {
	if line == "" {
		return
	}
	if m.scale <= 1 {
		drawNative(dst, x, y, line, m)
		return
	}
	tmp := NewBitmap(len(line)*m.advance/m.scale, m.glyphH/m.scale)
	native := m
	native.scale = 1
	drawNative(tmp, 0, 0, line, native)
	dst.blitScaled(tmp, x, y, m.scale)
}

func drawNative(dst *Bitmap, x, y int, line string, m styleMetrics) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: m.face,
		Dot:  fixed.P(x, y+m.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(line)
}
