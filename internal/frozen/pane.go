package frozen

import (
	"maps"
	"slices"

	"github.com/hylla/packgrid/internal/domain"
	"github.com/hylla/packgrid/internal/notify"
)

// PaneKind identifies one of the two panes.
type PaneKind int

// PanePrimary and related constants identify the panes.
const (
	PanePrimary PaneKind = iota
	PaneFrozen
)

// String renders the pane kind for logs.
func (k PaneKind) String() string {
	if k == PaneFrozen {
		return "frozen"
	}
	return "primary"
}

// Index addresses one cell by proxy row and logical column.
type Index struct {
	Row    int
	Column int
}

// Rect is a pane position and size in terminal cells.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Margins are the viewport margins reserved around a pane's content.
type Margins struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// SectionResize reports a column or row size change.
type SectionResize struct {
	Section int
	OldSize int
	NewSize int
}

// SortIndicator is the column and order shown in a pane header.
type SortIndicator struct {
	Column int
	Order  domain.SortOrder
}

// SelectionChange lists rows that entered and left a pane selection.
type SelectionChange struct {
	Selected   []int
	Deselected []int
}

// SelectionFlag selects how SelectRows combines rows with the current selection.
type SelectionFlag int

// Select and related constants define selection flags.
const (
	Select SelectionFlag = iota
	Deselect
	Toggle
	ClearAndSelect
)

// CursorAction is a keyboard cursor movement request.
type CursorAction int

// MoveLeft and related constants define cursor actions.
const (
	MoveLeft CursorAction = iota
	MoveRight
	MoveUp
	MoveDown
	MoveHome
	MoveEnd
	MovePageUp
	MovePageDown
)

// CellState carries the per-cell view state handed to a delegate.
type CellState struct {
	Current  bool
	Selected bool
	Focused  bool
}

// Delegate renders cells of one column.
type Delegate interface {
	Render(cell domain.Cell, width int, state CellState) string
}

// DelegateFactory builds one delegate instance per pane.
type DelegateFactory func(kind PaneKind) Delegate

// counts is the part of the model a pane reads.
type counts interface {
	RowCount() int
	ColumnCount() int
}

// Pane is the headless view state of one table view.
type Pane struct {
	kind PaneKind

	model         counts
	columns       int
	defaultWidth  int
	defaultHeight int

	widths  map[int]int
	heights map[int]int
	hidden  map[int]bool
	order   []int

	vScroll int
	hScroll int

	sort      SortIndicator
	selected  map[int]struct{}
	current   Index
	focused   bool
	rowHeader bool

	geometry Rect
	margins  Margins
	viewport Rect

	delegates map[int]Delegate

	columnResized    notify.List[SectionResize]
	rowResized       notify.List[SectionResize]
	sortChanged      notify.List[SortIndicator]
	verticalScrolled notify.List[int]
	selectionChanged notify.List[SelectionChange]
}

// newPane constructs an empty pane.
func newPane(kind PaneKind, defaultWidth, defaultHeight int) *Pane {
	return &Pane{
		kind:          kind,
		defaultWidth:  defaultWidth,
		defaultHeight: defaultHeight,
		widths:        map[int]int{},
		heights:       map[int]int{},
		hidden:        map[int]bool{},
		selected:      map[int]struct{}{},
		delegates:     map[int]Delegate{},
		sort:          SortIndicator{Column: -1},
		rowHeader:     true,
	}
}

// Kind returns which pane this is.
func (p *Pane) Kind() PaneKind {
	return p.kind
}

// setModel attaches model counts. Column state survives when the column count is unchanged; row
// heights never do since rows are proxy indices of the previous model.
func (p *Pane) setModel(model counts) {
	p.model = model
	columns := p.ColumnCount()
	if columns != p.columns || len(p.order) != columns {
		p.columns = columns
		p.widths = map[int]int{}
		p.hidden = map[int]bool{}
		p.order = make([]int, columns)
		for idx := range p.order {
			p.order[idx] = idx
		}
		p.hScroll = 0
	}
	p.heights = map[int]int{}
	p.vScroll = 0
	p.current = Index{}
	p.selected = map[int]struct{}{}
}

// RowCount returns the model row count.
func (p *Pane) RowCount() int {
	if p.model == nil {
		return 0
	}
	return p.model.RowCount()
}

// ColumnCount returns the model column count.
func (p *Pane) ColumnCount() int {
	if p.model == nil {
		return 0
	}
	return p.model.ColumnCount()
}

// ColumnWidth returns the width of a logical column.
func (p *Pane) ColumnWidth(col int) int {
	if w, ok := p.widths[col]; ok {
		return w
	}
	return p.defaultWidth
}

// SetColumnWidth resizes a column and notifies column-resize subscribers.
func (p *Pane) SetColumnWidth(col, width int) {
	if col < 0 || width < 1 {
		return
	}
	old := p.ColumnWidth(col)
	if old == width {
		return
	}
	p.widths[col] = width
	p.columnResized.Emit(SectionResize{Section: col, OldSize: old, NewSize: width})
}

// RowHeight returns the height of a row.
func (p *Pane) RowHeight(row int) int {
	if h, ok := p.heights[row]; ok {
		return h
	}
	return p.defaultHeight
}

// SetRowHeight resizes a row and notifies row-resize subscribers.
func (p *Pane) SetRowHeight(row, height int) {
	if row < 0 || height < 1 {
		return
	}
	old := p.RowHeight(row)
	if old == height {
		return
	}
	p.heights[row] = height
	p.rowResized.Emit(SectionResize{Section: row, OldSize: old, NewSize: height})
}

// IsColumnHidden reports whether a column is hidden in this pane.
func (p *Pane) IsColumnHidden(col int) bool {
	return p.hidden[col]
}

// SetColumnHidden hides or shows a column.
func (p *Pane) SetColumnHidden(col int, hidden bool) {
	if hidden {
		p.hidden[col] = true
		return
	}
	delete(p.hidden, col)
}

// setOrder replaces the visual column order. Columns missing from order keep their relative
// order after it.
func (p *Pane) setOrder(order []int) {
	out := make([]int, 0, p.columns)
	seen := map[int]struct{}{}
	for _, col := range order {
		if col < 0 || col >= p.columns {
			continue
		}
		if _, ok := seen[col]; ok {
			continue
		}
		seen[col] = struct{}{}
		out = append(out, col)
	}
	for col := 0; col < p.columns; col++ {
		if _, ok := seen[col]; !ok {
			out = append(out, col)
		}
	}
	p.order = out
}

// VisualIndex returns the visual position of a logical column, or -1.
func (p *Pane) VisualIndex(col int) int {
	return slices.Index(p.order, col)
}

// VisualColumns returns the shown logical columns in visual order.
func (p *Pane) VisualColumns() []int {
	out := make([]int, 0, len(p.order))
	for _, col := range p.order {
		if !p.hidden[col] {
			out = append(out, col)
		}
	}
	return out
}

// SortIndicator returns the header sort indicator.
func (p *Pane) SortIndicator() SortIndicator {
	return p.sort
}

// SetSortIndicator updates the header sort indicator and notifies subscribers on change.
func (p *Pane) SetSortIndicator(col int, order domain.SortOrder) {
	next := SortIndicator{Column: col, Order: order}
	if next == p.sort {
		return
	}
	p.sort = next
	p.sortChanged.Emit(next)
}

// VerticalScroll returns the first row in view.
func (p *Pane) VerticalScroll() int {
	return p.vScroll
}

// SetVerticalScroll moves the first row in view and notifies subscribers on change.
func (p *Pane) SetVerticalScroll(row int) {
	row = clamp(row, 0, max(0, p.RowCount()-1))
	if row == p.vScroll {
		return
	}
	p.vScroll = row
	p.verticalScrolled.Emit(row)
}

// HorizontalScroll returns the visual offset of the first shown column.
func (p *Pane) HorizontalScroll() int {
	return p.hScroll
}

// SetHorizontalScroll moves the first shown column.
func (p *Pane) SetHorizontalScroll(offset int) {
	p.hScroll = clamp(offset, 0, max(0, len(p.VisualColumns())-1))
}

// SelectedRows returns the selected rows in ascending order.
func (p *Pane) SelectedRows() []int {
	rows := slices.Collect(maps.Keys(p.selected))
	slices.Sort(rows)
	return rows
}

// IsRowSelected reports whether a row is selected.
func (p *Pane) IsRowSelected(row int) bool {
	_, ok := p.selected[row]
	return ok
}

// SelectRows changes the selection and notifies subscribers with the effective difference.
func (p *Pane) SelectRows(rows []int, flag SelectionFlag) {
	var selected, deselected []int
	switch flag {
	case ClearAndSelect:
		keep := map[int]struct{}{}
		for _, row := range rows {
			if p.validRow(row) {
				keep[row] = struct{}{}
			}
		}
		for _, row := range p.SelectedRows() {
			if _, ok := keep[row]; !ok {
				deselected = append(deselected, row)
			}
		}
		selected = rows
	case Deselect:
		deselected = rows
	case Toggle:
		for _, row := range rows {
			if p.IsRowSelected(row) {
				deselected = append(deselected, row)
			} else {
				selected = append(selected, row)
			}
		}
	default:
		selected = rows
	}
	p.apply(selected, deselected)
}

// ClearSelection deselects every row.
func (p *Pane) ClearSelection() {
	p.SelectRows(nil, ClearAndSelect)
}

// apply selects and deselects rows, emitting one change holding only rows whose state flipped.
func (p *Pane) apply(selected, deselected []int) {
	var change SelectionChange
	for _, row := range deselected {
		if _, ok := p.selected[row]; ok {
			delete(p.selected, row)
			change.Deselected = append(change.Deselected, row)
		}
	}
	for _, row := range selected {
		if !p.validRow(row) || p.IsRowSelected(row) {
			continue
		}
		p.selected[row] = struct{}{}
		change.Selected = append(change.Selected, row)
	}
	if len(change.Selected) == 0 && len(change.Deselected) == 0 {
		return
	}
	p.selectionChanged.Emit(change)
}

// validRow reports whether row addresses a model row.
func (p *Pane) validRow(row int) bool {
	return row >= 0 && row < p.RowCount()
}

// CurrentIndex returns the cursor cell.
func (p *Pane) CurrentIndex() Index {
	return p.current
}

// SetCurrentIndex moves the cursor cell.
func (p *Pane) SetCurrentIndex(idx Index) {
	p.current = idx
}

// HasFocus reports whether the pane receives keyboard input.
func (p *Pane) HasFocus() bool {
	return p.focused
}

// RowHeaderVisible reports whether the row-number header is shown.
func (p *Pane) RowHeaderVisible() bool {
	return p.rowHeader
}

// SetRowHeaderVisible shows or hides the row-number header.
func (p *Pane) SetRowHeaderVisible(visible bool) {
	p.rowHeader = visible
}

// Geometry returns the pane rectangle.
func (p *Pane) Geometry() Rect {
	return p.geometry
}

// SetGeometry places the pane.
func (p *Pane) SetGeometry(r Rect) {
	p.geometry = r
}

// Margins returns the viewport margins.
func (p *Pane) Margins() Margins {
	return p.margins
}

// SetMargins replaces the viewport margins.
func (p *Pane) SetMargins(m Margins) {
	p.margins = m
}

// Viewport returns the content area size in terminal cells.
func (p *Pane) Viewport() Rect {
	return p.viewport
}

// setViewport stores the content area size.
func (p *Pane) setViewport(width, height int) {
	p.viewport = Rect{Width: max(0, width), Height: max(0, height)}
}

// Delegate returns the delegate registered for a column, or nil.
func (p *Pane) Delegate(col int) Delegate {
	return p.delegates[col]
}

// SetDelegate registers a delegate for a column. A nil delegate removes it.
func (p *Pane) SetDelegate(col int, d Delegate) {
	if d == nil {
		delete(p.delegates, col)
		return
	}
	p.delegates[col] = d
}

// OnColumnResized registers fn for column width changes.
func (p *Pane) OnColumnResized(fn func(SectionResize)) (cancel func()) {
	return p.columnResized.Subscribe(fn)
}

// OnRowResized registers fn for row height changes.
func (p *Pane) OnRowResized(fn func(SectionResize)) (cancel func()) {
	return p.rowResized.Subscribe(fn)
}

// OnSortIndicatorChanged registers fn for header sort changes.
func (p *Pane) OnSortIndicatorChanged(fn func(SortIndicator)) (cancel func()) {
	return p.sortChanged.Subscribe(fn)
}

// OnVerticalScroll registers fn for first-row changes.
func (p *Pane) OnVerticalScroll(fn func(int)) (cancel func()) {
	return p.verticalScrolled.Subscribe(fn)
}

// OnSelectionChanged registers fn for selection changes.
func (p *Pane) OnSelectionChanged(fn func(SelectionChange)) (cancel func()) {
	return p.selectionChanged.Subscribe(fn)
}

// MoveCursor computes the default cursor target for action without applying it.
func (p *Pane) MoveCursor(action CursorAction) Index {
	cur := p.current
	cols := p.VisualColumns()
	rows := p.RowCount()
	if len(cols) == 0 || rows == 0 {
		return cur
	}
	pos := max(0, slices.Index(cols, cur.Column))
	row := clamp(cur.Row, 0, rows-1)
	page := max(1, p.rowsFitting(p.vScroll))

	switch action {
	case MoveLeft:
		pos--
	case MoveRight:
		pos++
	case MoveUp:
		row--
	case MoveDown:
		row++
	case MoveHome:
		pos = 0
	case MoveEnd:
		pos = len(cols) - 1
	case MovePageUp:
		row -= page
	case MovePageDown:
		row += page
	}
	return Index{
		Row:    clamp(row, 0, rows-1),
		Column: cols[clamp(pos, 0, len(cols)-1)],
	}
}

// ScrollTo adjusts both scroll offsets so idx is inside the viewport.
func (p *Pane) ScrollTo(idx Index) {
	p.scrollToRow(idx.Row)

	cols := p.VisualColumns()
	pos := slices.Index(cols, idx.Column)
	if pos < 0 {
		return
	}
	offset := clamp(p.hScroll, 0, max(0, len(cols)-1))
	if pos < offset {
		offset = pos
	}
	for offset < pos && p.widthOf(cols[offset:pos+1]) > p.viewport.Width {
		offset++
	}
	p.hScroll = offset
}

// scrollToRow brings row into vertical view.
func (p *Pane) scrollToRow(row int) {
	rows := p.RowCount()
	if rows == 0 || row < 0 || row >= rows {
		return
	}
	top := p.vScroll
	if row < top {
		top = row
	}
	for top < row && p.heightOf(top, row) > p.viewport.Height {
		top++
	}
	p.SetVerticalScroll(top)
}

// ColumnsInView returns the shown columns that fit the viewport from the horizontal offset.
// At least one column is returned when any is shown.
func (p *Pane) ColumnsInView() []int {
	cols := p.VisualColumns()
	if len(cols) == 0 {
		return nil
	}
	start := clamp(p.hScroll, 0, len(cols)-1)
	out := []int{cols[start]}
	used := p.ColumnWidth(cols[start])
	for _, col := range cols[start+1:] {
		w := p.ColumnWidth(col)
		if used+w > p.viewport.Width {
			break
		}
		used += w
		out = append(out, col)
	}
	return out
}

// RowsInView returns the first row in view and the number of rows that fit.
func (p *Pane) RowsInView() (first, count int) {
	if p.RowCount() == 0 {
		return 0, 0
	}
	return p.vScroll, p.rowsFitting(p.vScroll)
}

// rowsFitting counts rows from top that fit the viewport height, at least one.
func (p *Pane) rowsFitting(top int) int {
	rows := p.RowCount()
	used, n := 0, 0
	for row := top; row < rows; row++ {
		h := p.RowHeight(row)
		if n > 0 && used+h > p.viewport.Height {
			break
		}
		used += h
		n++
	}
	return n
}

// widthOf sums column widths.
func (p *Pane) widthOf(cols []int) int {
	total := 0
	for _, col := range cols {
		total += p.ColumnWidth(col)
	}
	return total
}

// heightOf sums row heights over [from, to].
func (p *Pane) heightOf(from, to int) int {
	total := 0
	for row := from; row <= to; row++ {
		total += p.RowHeight(row)
	}
	return total
}

// clampToModel keeps scroll, cursor and selection inside the current row count.
func (p *Pane) clampToModel() {
	rows := p.RowCount()
	p.vScroll = clamp(p.vScroll, 0, max(0, rows-1))
	p.current.Row = clamp(p.current.Row, 0, max(0, rows-1))
	p.hScroll = clamp(p.hScroll, 0, max(0, len(p.VisualColumns())-1))
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
