package printer

import (
	"image"
	"math"

	"github.com/juju/errors"
)

func drawOp(bm *Bitmap, y int, o op) error {
	switch v := o.(type) {
	case opText:
		drawText(bm, y, v)
	case opBox:
		drawBox(bm, y, v)
	case opFeed:
		// blank space only
	case opMoon:
		drawMoon(bm, y, v)
	case opMaze:
		drawMaze(bm, y, v)
	case opSudoku:
		drawSudoku(bm, y, v)
	case opQR:
		return drawQR(bm, y, v)
	default:
		return errors.Errorf("unknown print op %T", o)
	}
	return nil
}

func drawText(bm *Bitmap, y int, o opText) {
	m := metricsFor(o.style)
	for i, line := range o.lines {
		ly := y + i*m.lineH + (m.lineH-m.glyphH)/2
		drawTextLine(bm, marginX, ly, line, m)
	}
}

func drawBox(bm *Bitmap, y int, o opBox) {
	m := metricsFor(o.style)
	h := o.height()
	x0, x1 := marginX, bm.W-marginX
	// filled rectangle with an inset clear leaves the border ring
	bm.fillRect(x0, y, x1, y+h, true)
	bm.fillRect(x0+o.border, y+o.border, x1-o.border, y+h-o.border, false)
	for i, line := range o.lines {
		ly := y + o.border + o.pad + i*m.lineH + (m.lineH-m.glyphH)/2
		lx := (bm.W - len(line)*m.advance) / 2
		if lx < x0+o.border+o.pad {
			lx = x0 + o.border + o.pad
		}
		drawTextLine(bm, lx, ly, line, m)
	}
}

// drawMoon shades the dark fraction of the lunar disc. Illuminated
// fraction follows the cosine model over the 28-day cycle; days 0..14 wax
// with the lit limb on the right, 14..28 wane lit on the left.
func drawMoon(bm *Bitmap, y int, o opMoon) {
	r := float64(o.size) / 2
	cx := float64(bm.W) / 2
	cy := float64(y+gfxMargin) + r
	phase := math.Mod(o.phase, 28)
	if phase < 0 {
		phase += 28
	}
	illum := (1 - math.Cos(2*math.Pi*phase/28)) / 2
	waxing := phase <= 14

	for py := y + gfxMargin; py < y+gfxMargin+o.size; py++ {
		dy := float64(py) + 0.5 - cy
		if math.Abs(dy) > r {
			continue
		}
		half := math.Sqrt(r*r - dy*dy)
		// terminator: lit side spans `illum` of the disc width from the limb
		term := half * (1 - 2*illum)
		for px := int(cx - half); px < int(cx+half); px++ {
			dx := float64(px) + 0.5 - cx
			if dx*dx+dy*dy > r*r {
				continue
			}
			var lit bool
			if waxing {
				lit = dx >= term
			} else {
				lit = dx <= -term
			}
			if !lit {
				bm.Mark(px, py)
			}
		}
		// limb outline keeps a new moon visible
		bm.Mark(int(cx-half), py)
		bm.Mark(int(cx+half)-1, py)
	}
}

func drawMaze(bm *Bitmap, y int, o opMaze) {
	rows := len(o.walls)
	cols := len(o.walls[0])
	x0 := (bm.W - cols*o.cell) / 2
	y0 := y + gfxMargin
	for ry, row := range o.walls {
		for cx, wall := range row {
			if !wall {
				continue
			}
			px := x0 + cx*o.cell
			py := y0 + ry*o.cell
			bm.fillRect(px, py, px+o.cell, py+o.cell, true)
		}
	}
	// arrows mark entrance (first open cell, top row) and exit (last open
	// cell, bottom row) in the margin bands
	entrance, exit := 0, cols-1
	for cx, wall := range o.walls[0] {
		if !wall {
			entrance = cx
			break
		}
	}
	for cx := cols - 1; cx >= 0; cx-- {
		if !o.walls[rows-1][cx] {
			exit = cx
			break
		}
	}
	drawArrow(bm, x0+entrance*o.cell+o.cell/2, y0-1, o.cell/2)
	drawArrow(bm, x0+exit*o.cell+o.cell/2, y0+rows*o.cell+gfxMargin-1, o.cell/2)
}

// drawArrow renders a downward triangle with its tip at (cx, tipY).
func drawArrow(bm *Bitmap, cx, tipY, size int) {
	for i := 0; i < size; i++ {
		py := tipY - i
		bm.fillRect(cx-i, py, cx+i+1, py+1, true)
	}
}

func drawSudoku(bm *Bitmap, y int, o opSudoku) {
	side := sudokuCells*o.cell + 2
	x0 := (bm.W - side) / 2
	y0 := y + gfxMargin
	for i := 0; i <= sudokuCells; i++ {
		weight := 1
		if i%3 == 0 {
			// heavier border on 3x3 boundaries
			weight = 2
		}
		p := i * o.cell
		bm.fillRect(x0, y0+p, x0+side, y0+p+weight, true)
		bm.fillRect(x0+p, y0, x0+p+weight, y0+side, true)
	}
	m := metricsFor(StyleBold)
	for ry := 0; ry < sudokuCells; ry++ {
		for cx := 0; cx < sudokuCells; cx++ {
			d := o.grid[ry][cx]
			if d == 0 || d > 9 {
				continue
			}
			px := x0 + cx*o.cell + (o.cell-m.advance)/2
			py := y0 + ry*o.cell + (o.cell-m.glyphH)/2
			drawTextLine(bm, px, py, string('0'+rune(d)), m)
		}
	}
}

func drawQR(bm *Bitmap, y int, o opQR) error {
	img, ok := o.qr.Image(o.side).(*image.Paletted)
	if !ok {
		return errors.Errorf("qr image type")
	}
	x0 := (bm.W - o.side) / 2
	y0 := y + gfxMargin
	min, max := img.Bounds().Min, img.Bounds().Max
	for py := min.Y; py < max.Y; py++ {
		for px := min.X; px < max.X; px++ {
			if img.Pix[img.PixOffset(px, py)] != 0 {
				bm.Mark(x0+px-min.X, y0+py-min.Y)
			}
		}
	}
	return nil
}
