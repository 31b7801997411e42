package sequencer

import (
	"maps"
	"slices"
	"strings"

	"go-pianoroll/theory"
)

// Rows is the number of time steps in every grid
const Rows = 200

// Variant is what a cell holds. Note and Accidental are mutually exclusive
// markings, e.g. for two hands.
type Variant uint8

const (
	Empty Variant = iota
	Note
	Accidental
)

func (v Variant) String() string {
	switch v {
	case Note:
		return "note"
	case Accidental:
		return "accidental"
	}
	return "empty"
}

// Pos addresses a cell
type Pos struct {
	Row, Col int
}

// Cell is one grid square. Fingering is "" or one/two digits 1-5 and is only
// set on cells holding a variant.
type Cell struct {
	Variant   Variant
	Fingering string
}

// Grid is the ROWS x COLS note matrix. Column i sounds Pitch(i).
type Grid struct {
	rows    int
	octaves []int
	pitches []string
	column  map[string]int
	cells   []Cell
	offGrid []offGridCell

	// visible octave window, indices into octaves, inclusive
	winLo, winHi int
}

// NewGrid builds an empty grid of rows x 12*len(octaves).
func NewGrid(rows int, octaves []int) *Grid {
	pitches := theory.Linear(octaves)
	g := &Grid{
		rows:    rows,
		octaves: append([]int(nil), octaves...),
		pitches: pitches,
		column:  make(map[string]int, len(pitches)),
		cells:   make([]Cell, rows*len(pitches)),
		winLo:   0,
		winHi:   len(octaves) - 1,
	}
	for i, p := range pitches {
		g.column[p] = i
	}
	return g
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return len(g.pitches) }

// Octaves returns the octave of each 12-column block
func (g *Grid) Octaves() []int { return g.octaves }

// Pitch returns the note name of a column, e.g. "C#4"
func (g *Grid) Pitch(col int) string {
	if col < 0 || col >= len(g.pitches) {
		return ""
	}
	return g.pitches[col]
}

// Column returns the column sounding pitch
func (g *Grid) Column(pitch string) (int, bool) {
	c, ok := g.column[pitch]
	return c, ok
}

func (g *Grid) InBounds(p Pos) bool {
	return p.Row >= 0 && p.Row < g.rows && p.Col >= 0 && p.Col < len(g.pitches)
}

// Index is the persisted cell index row*COLS + col
func (g *Grid) Index(p Pos) int {
	return p.Row*len(g.pitches) + p.Col
}

// Pos is the inverse of Index
func (g *Grid) Pos(idx int) Pos {
	return Pos{Row: idx / len(g.pitches), Col: idx % len(g.pitches)}
}

func (g *Grid) at(p Pos) *Cell {
	return &g.cells[g.Index(p)]
}

// Cell returns a copy of the cell at p (zero value outside the grid)
func (g *Grid) Cell(p Pos) Cell {
	if !g.InBounds(p) {
		return Cell{}
	}
	return *g.at(p)
}

// Toggle clears the cell if it already holds v, otherwise sets it to v. Any
// fingering is dropped either way. Returns the new variant.
func (g *Grid) Toggle(p Pos, v Variant) Variant {
	if !g.InBounds(p) || v == Empty {
		return g.Cell(p).Variant
	}
	c := g.at(p)
	if c.Variant == v {
		c.Variant = Empty
	} else {
		c.Variant = v
	}
	c.Fingering = ""
	return c.Variant
}

// AddFingering appends digit ('1'..'5') to the cell's fingering, keeping the
// last two. Digits already present and cells without a note are ignored.
func (g *Grid) AddFingering(p Pos, digit byte) bool {
	if !g.InBounds(p) || digit < '1' || digit > '5' {
		return false
	}
	c := g.at(p)
	if c.Variant == Empty || strings.IndexByte(c.Fingering, digit) >= 0 {
		return false
	}
	f := c.Fingering + string(digit)
	if len(f) > 2 {
		f = f[len(f)-2:]
	}
	c.Fingering = f
	return true
}

// ClearFingering removes the cell's fingering
func (g *Grid) ClearFingering(p Pos) {
	if g.InBounds(p) {
		g.at(p).Fingering = ""
	}
}

// MoveSelection shifts every selected cell by (dRow, dCol). If any
// destination falls outside the grid nothing changes and ok is false. All
// sources are read before anything is written, so overlapping shifts are
// safe.
func (g *Grid) MoveSelection(sel []Pos, dRow, dCol int) (moved []Pos, ok bool) {
	for _, p := range sel {
		if !g.InBounds(p) || !g.InBounds(Pos{p.Row + dRow, p.Col + dCol}) {
			return sel, false
		}
	}

	type move struct {
		dst  Pos
		cell Cell
	}
	moves := make([]move, 0, len(sel))
	seen := make(map[Pos]bool, len(sel))
	for _, p := range sel {
		if seen[p] {
			continue
		}
		seen[p] = true
		moves = append(moves, move{Pos{p.Row + dRow, p.Col + dCol}, *g.at(p)})
	}
	for p := range seen {
		*g.at(p) = Cell{}
	}
	moved = make([]Pos, 0, len(moves))
	for _, m := range moves {
		*g.at(m.dst) = m.cell
		moved = append(moved, m.dst)
	}
	return moved, true
}

// Visible reports whether col lies inside the octave window
func (g *Grid) Visible(col int) bool {
	o := col / len(theory.NoteNames)
	return col >= 0 && col < len(g.pitches) && o >= g.winLo && o <= g.winHi
}

// Window returns the visible octave range as indices into Octaves()
func (g *Grid) Window() (lo, hi int) {
	return g.winLo, g.winHi
}

// SetWindow limits playback to octave indices lo..hi, clamped to the grid
func (g *Grid) SetWindow(lo, hi int) {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo < 0 {
		lo = 0
	}
	if hi > len(g.octaves)-1 {
		hi = len(g.octaves) - 1
	}
	g.winLo, g.winHi = lo, hi
}

// ExpandWindow shows one more octave, above if possible, else below
func (g *Grid) ExpandWindow() bool {
	switch {
	case g.winHi < len(g.octaves)-1:
		g.winHi++
	case g.winLo > 0:
		g.winLo--
	default:
		return false
	}
	return true
}

// ContractWindow hides the top octave; at least one stays visible
func (g *Grid) ContractWindow() bool {
	if g.winHi <= g.winLo {
		return false
	}
	g.winHi--
	return true
}

// LastActiveRow is the highest row with a note in a visible column, or -1.
func (g *Grid) LastActiveRow() int {
	cols := len(g.pitches)
	for r := g.rows - 1; r >= 0; r-- {
		for c := 0; c < cols; c++ {
			if g.cells[r*cols+c].Variant != Empty && g.Visible(c) {
				return r
			}
		}
	}
	return -1
}

// NotesInRow lists the pitches sounding in row, visible columns only
func (g *Grid) NotesInRow(row int) []string {
	if row < 0 || row >= g.rows {
		return nil
	}
	var out []string
	cols := len(g.pitches)
	for c := 0; c < cols; c++ {
		if g.cells[row*cols+c].Variant != Empty && g.Visible(c) {
			out = append(out, g.pitches[c])
		}
	}
	return out
}

// Clear empties every cell
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = Cell{}
	}
	g.offGrid = nil
}

// offGridCell is a loaded cell whose pitch has no column in this grid,
// e.g. a note saved while more octaves were configured.
type offGridCell struct {
	row   int
	pitch string
	cell  Cell
}

// OffGrid counts loaded cells outside the configured octaves. They are not
// shown or played but Snapshot writes them back.
func (g *Grid) OffGrid() int { return len(g.offGrid) }

// Layout is the octave list the Snapshot indices refer to: the grid's own
// octaves, widened to cover any off-grid cells.
func (g *Grid) Layout() []int {
	lo, hi := g.octaves[0], g.octaves[len(g.octaves)-1]
	for _, c := range g.offGrid {
		if _, o, err := theory.SplitNoteName(c.pitch); err == nil {
			lo, hi = min(lo, o), max(hi, o)
		}
	}
	out := make([]int, 0, hi-lo+1)
	for o := lo; o <= hi; o++ {
		out = append(out, o)
	}
	return out
}

// Snapshot captures the cells as persisted index lists (gatherState),
// indexed row*12*len(Layout()) + column in Layout().
func (g *Grid) Snapshot() (notes, accidentals []int, fings []Fingering) {
	notes, accidentals, fings = []int{}, []int{}, []Fingering{}
	column, cols := g.column, len(g.pitches)
	if len(g.offGrid) > 0 {
		pitches := theory.Linear(g.Layout())
		column, cols = make(map[string]int, len(pitches)), len(pitches)
		for i, p := range pitches {
			column[p] = i
		}
	}
	add := func(row int, pitch string, c Cell) {
		i := row*cols + column[pitch]
		switch c.Variant {
		case Note:
			notes = append(notes, i)
		case Accidental:
			accidentals = append(accidentals, i)
		}
		if c.Fingering != "" {
			fings = append(fings, Fingering{Index: i, Digits: c.Fingering})
		}
	}
	for i, c := range g.cells {
		add(i/len(g.pitches), g.pitches[i%len(g.pitches)], c)
	}
	if len(g.offGrid) > 0 {
		for _, c := range g.offGrid {
			add(c.row, c.pitch, c.cell)
		}
		slices.Sort(notes)
		slices.Sort(accidentals)
		slices.SortFunc(fings, func(a, b Fingering) int { return a.Index - b.Index })
	}
	return notes, accidentals, fings
}

// Apply clears the grid and loads st's cells (applyState). Indices refer to
// st.Octaves, or to theory.DefaultOctaves when the state has no valid
// layout, and are mapped to this grid by pitch. Cells whose pitch has no
// column are kept off-grid. Out-of-range indices and malformed fingerings
// are dropped. A nil state leaves the grid empty.
func (g *Grid) Apply(st *State) {
	g.Clear()
	if st == nil {
		return
	}
	layout := st.Octaves
	if !validLayout(layout) {
		layout = theory.DefaultOctaves
	}
	pitches := theory.Linear(layout)
	size := g.rows * len(pitches)

	loaded := make(map[int]Cell)
	for _, i := range st.Green {
		if i >= 0 && i < size {
			loaded[i] = Cell{Variant: Note}
		}
	}
	for _, i := range st.Blue {
		if i >= 0 && i < size {
			loaded[i] = Cell{Variant: Accidental}
		}
	}
	for _, f := range st.Fings {
		c, ok := loaded[f.Index]
		if !ok || !validFingering(f.Digits) {
			continue
		}
		c.Fingering = f.Digits
		loaded[f.Index] = c
	}

	for _, i := range slices.Sorted(maps.Keys(loaded)) {
		row, pitch := i/len(pitches), pitches[i%len(pitches)]
		if col, ok := g.column[pitch]; ok {
			*g.at(Pos{row, col}) = loaded[i]
		} else {
			g.offGrid = append(g.offGrid, offGridCell{row: row, pitch: pitch, cell: loaded[i]})
		}
	}
}

// validLayout accepts 1-10 consecutive octaves from -1 to 8
func validLayout(octaves []int) bool {
	if len(octaves) == 0 || len(octaves) > 10 {
		return false
	}
	for i, o := range octaves {
		if o < -1 || o > 8 || (i > 0 && o != octaves[i-1]+1) {
			return false
		}
	}
	return true
}

func validFingering(d string) bool {
	if len(d) == 0 || len(d) > 2 {
		return false
	}
	for i := 0; i < len(d); i++ {
		if d[i] < '1' || d[i] > '5' {
			return false
		}
	}
	return len(d) == 1 || d[0] != d[1]
}
