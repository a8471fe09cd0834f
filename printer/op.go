package printer

import "github.com/skip2/go-qrcode"

// Layout constants, all in printer dots.
const (
	marginX   = 8 // left/right text margin
	gfxMargin = 8 // blank band above/below graphics

	boxBorder = 2
	boxPad    = 6

	sudokuCells = 9
)

// op is the closed set of drawing operations a print job is built from.
// The renderer switches over concrete types exhaustively; adding a kind
// means touching height accounting, truncation and drawOp together.
type op interface {
	// height in dots this operation contributes to the canvas
	height() int
	// textLines counts toward the max-lines truncation budget
	textLines() int
}

type opText struct {
	lines []string
	style Style
}

func (o opText) height() int    { return len(o.lines) * LineHeight(o.style) }
func (o opText) textLines() int { return len(o.lines) }

type opBox struct {
	lines  []string
	style  Style
	pad    int
	border int
}

func (o opBox) height() int {
	return 2*(o.border+o.pad) + len(o.lines)*LineHeight(o.style)
}
func (o opBox) textLines() int { return len(o.lines) }

type opFeed struct{ lines int }

func (o opFeed) height() int    { return o.lines * LineHeight(StyleBody) }
func (o opFeed) textLines() int { return 0 }

type opMoon struct {
	phase float64 // day in the 28-day cycle
	size  int     // diameter in dots
}

func (o opMoon) height() int    { return o.size + 2*gfxMargin }
func (o opMoon) textLines() int { return 0 }

type opMaze struct {
	walls [][]bool // true = wall cell
	cell  int      // cell side in dots
}

func (o opMaze) height() int    { return len(o.walls)*o.cell + 2*gfxMargin }
func (o opMaze) textLines() int { return 0 }

type opSudoku struct {
	grid [sudokuCells][sudokuCells]uint8 // 0 = empty
	cell int
}

func (o opSudoku) height() int    { return sudokuCells*o.cell + 2 + 2*gfxMargin }
func (o opSudoku) textLines() int { return 0 }

type opQR struct {
	qr   *qrcode.QRCode
	side int // rendered square side in dots
}

func (o opQR) height() int    { return o.side + 2*gfxMargin }
func (o opQR) textLines() int { return 0 }
