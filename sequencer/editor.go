package sequencer

import "sort"

// Rect is an inclusive cell rectangle
type Rect struct {
	Min, Max Pos
}

func (r Rect) Contains(p Pos) bool {
	return p.Row >= r.Min.Row && p.Row <= r.Max.Row && p.Col >= r.Min.Col && p.Col <= r.Max.Col
}

func rectOf(a, b Pos) Rect {
	return Rect{
		Min: Pos{min(a.Row, b.Row), min(a.Col, b.Col)},
		Max: Pos{max(a.Row, b.Row), max(a.Col, b.Col)},
	}
}

// Editor is the pointer/keyboard editing state over a grid: hover, the
// committed selection and an in-progress lasso.
type Editor struct {
	grid *Grid

	hover    Pos
	hasHover bool

	selection map[Pos]bool

	down    bool
	dragged bool
	start   Pos
	lasso   []Pos
}

func NewEditor(g *Grid) *Editor {
	return &Editor{grid: g, selection: make(map[Pos]bool)}
}

// Hover moves the hover position (mouse or keyboard cursor)
func (e *Editor) Hover(p Pos) {
	if e.grid.InBounds(p) {
		e.hover, e.hasHover = p, true
	}
}

// Hovered returns the hover position
func (e *Editor) Hovered() (Pos, bool) {
	return e.hover, e.hasHover
}

// Click toggles v at p. With a selection present it only clears the
// selection. preview is true when the cell now holds a note.
func (e *Editor) Click(p Pos, v Variant) (changed, preview bool) {
	if !e.grid.InBounds(p) {
		return false, false
	}
	if len(e.selection) > 0 {
		e.ClearSelection()
		return false, false
	}
	now := e.grid.Toggle(p, v)
	return true, now != Empty
}

// BeginDrag records a pointer press
func (e *Editor) BeginDrag(p Pos) {
	if !e.grid.InBounds(p) {
		return
	}
	e.down = true
	e.dragged = false
	e.start = p
	e.lasso = nil
	e.Hover(p)
}

// DragTo extends the lasso; once the pointer leaves the start cell the
// press becomes a drag.
func (e *Editor) DragTo(p Pos) {
	e.Hover(p)
	if !e.down || !e.grid.InBounds(p) {
		return
	}
	if !e.dragged && p != e.start {
		e.dragged = true
	}
	if !e.dragged {
		return
	}
	r := rectOf(e.start, p)
	e.lasso = e.lasso[:0]
	for row := r.Min.Row; row <= r.Max.Row; row++ {
		for col := r.Min.Col; col <= r.Max.Col; col++ {
			q := Pos{row, col}
			if e.grid.Cell(q).Variant != Empty {
				e.lasso = append(e.lasso, q)
			}
		}
	}
}

// EndDrag releases the pointer. After a drag the lasso becomes the
// selection and is returned for previewing; otherwise wasDrag is false and
// the caller treats the release as a click at the hover position.
func (e *Editor) EndDrag() (selected []Pos, wasDrag bool) {
	if !e.down {
		return nil, false
	}
	e.down = false
	if !e.dragged {
		return nil, false
	}
	e.dragged = false
	e.selection = make(map[Pos]bool, len(e.lasso))
	for _, p := range e.lasso {
		e.selection[p] = true
	}
	e.lasso = nil
	return e.Selection(), true
}

// Lasso returns the drag rectangle while dragging
func (e *Editor) Lasso() (Rect, bool) {
	if !e.down || !e.dragged {
		return Rect{}, false
	}
	return rectOf(e.start, e.hover), true
}

// Move shifts the selection. Rejected moves leave everything unchanged.
func (e *Editor) Move(dRow, dCol int) bool {
	if len(e.selection) == 0 {
		return false
	}
	moved, ok := e.grid.MoveSelection(e.Selection(), dRow, dCol)
	if !ok {
		return false
	}
	e.selection = make(map[Pos]bool, len(moved))
	for _, p := range moved {
		e.selection[p] = true
	}
	return true
}

// Fingering adds digit to the hovered note cell
func (e *Editor) Fingering(digit byte) bool {
	if !e.hasHover {
		return false
	}
	return e.grid.AddFingering(e.hover, digit)
}

// ClearFingering clears the hovered cell's fingering if it holds a note
func (e *Editor) ClearFingering() bool {
	if !e.hasHover || e.grid.Cell(e.hover).Variant == Empty {
		return false
	}
	e.grid.ClearFingering(e.hover)
	return true
}

// ClearSelection is the Escape key
func (e *Editor) ClearSelection() {
	e.selection = make(map[Pos]bool)
	e.lasso = nil
}

// Reset drops all transient editing state, used when the grid is replaced
func (e *Editor) Reset() {
	e.ClearSelection()
	e.down = false
	e.dragged = false
}

// Selected reports whether p is selected or inside the live lasso
func (e *Editor) Selected(p Pos) bool {
	if e.selection[p] {
		return true
	}
	for _, q := range e.lasso {
		if q == p {
			return true
		}
	}
	return false
}

// Selection returns the committed selection in row-major order
func (e *Editor) Selection() []Pos {
	out := make([]Pos, 0, len(e.selection))
	for p := range e.selection {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
