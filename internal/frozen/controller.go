// Package frozen pins table columns into a secondary pane that stays visible while the primary
// pane scrolls horizontally.
package frozen

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/hylla/packgrid/internal/domain"
)

// Model is the filtered and sorted row source both panes display.
type Model interface {
	RowCount() int
	ColumnCount() int
	Sort(column int, order domain.SortOrder)
	OnLayoutChanged(fn func()) (cancel func())
}

// Config holds controller tunables.
type Config struct {
	FrameWidth         int
	HeaderHeight       int
	RowHeaderWidth     int
	DefaultColumnWidth int
	DefaultRowHeight   int
	Logger             *log.Logger
}

// withDefaults fills zero tunables.
func (c Config) withDefaults() Config {
	if c.HeaderHeight <= 0 {
		c.HeaderHeight = 1
	}
	if c.RowHeaderWidth < 0 {
		c.RowHeaderWidth = 0
	}
	if c.DefaultColumnWidth <= 0 {
		c.DefaultColumnWidth = 12
	}
	if c.DefaultRowHeight <= 0 {
		c.DefaultRowHeight = 1
	}
	if c.FrameWidth < 0 {
		c.FrameWidth = 0
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
	return c
}

// Controller owns the primary and frozen panes and keeps them in sync.
type Controller struct {
	cfg    Config
	logger *log.Logger

	primary *Pane
	frozen  *Pane

	model   Model
	columns int
	set     domain.FrozenSet

	baseLeftMargin int
	baseCaptured   bool

	frameWidth  int
	frameHeight int

	focus     PaneKind
	mirroring bool
	teardown  []func()
}

// NewController constructs a controller with empty panes.
func NewController(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		cfg:     cfg,
		logger:  cfg.Logger,
		primary: newPane(PanePrimary, cfg.DefaultColumnWidth, cfg.DefaultRowHeight),
		frozen:  newPane(PaneFrozen, cfg.DefaultColumnWidth, cfg.DefaultRowHeight),
	}
	c.primary.SetMargins(Margins{Left: cfg.RowHeaderWidth})
	c.frozen.SetRowHeaderVisible(false)
	c.primary.focused = true
	return c
}

// Primary returns the primary pane.
func (c *Controller) Primary() *Pane {
	return c.primary
}

// Frozen returns the frozen pane.
func (c *Controller) Frozen() *Pane {
	return c.frozen
}

// Model returns the attached model, or nil.
func (c *Controller) Model() Model {
	return c.model
}

// SetModel attaches model to both panes and rebuilds every sync subscription. Frozen columns
// survive when the column count is unchanged.
func (c *Controller) SetModel(model Model) {
	c.disconnect()
	c.model = model
	if model == nil {
		c.primary.setModel(nil)
		c.frozen.setModel(nil)
		c.columns = 0
		c.set.Reset()
		c.UpdateGeometry()
		return
	}

	if cols := model.ColumnCount(); cols != c.columns {
		c.columns = cols
		c.set.Reset()
	}
	c.primary.setModel(model)
	c.frozen.setModel(model)
	c.connect()
	c.UpdateGeometry()
	c.reconcileFocus()
	c.logger.Debug("frozen model attached", "columns", c.columns, "rows", model.RowCount(), "frozen", c.set.Columns())
}

// connect registers every cross-pane subscription.
func (c *Controller) connect() {
	c.teardown = append(c.teardown,
		c.primary.OnColumnResized(func(ev SectionResize) {
			c.frozen.SetColumnWidth(ev.Section, ev.NewSize)
			c.UpdateGeometry()
		}),
		c.primary.OnRowResized(func(ev SectionResize) {
			c.frozen.SetRowHeight(ev.Section, ev.NewSize)
		}),
		c.primary.OnVerticalScroll(c.frozen.SetVerticalScroll),
		c.frozen.OnVerticalScroll(c.primary.SetVerticalScroll),
		c.primary.OnSortIndicatorChanged(func(ind SortIndicator) {
			c.frozen.SetSortIndicator(ind.Column, ind.Order)
			if c.model != nil {
				c.model.Sort(ind.Column, ind.Order)
			}
		}),
		c.frozen.OnSortIndicatorChanged(func(ind SortIndicator) {
			c.primary.SetSortIndicator(ind.Column, ind.Order)
		}),
		c.primary.OnSelectionChanged(c.mirrorSelection(c.frozen)),
		c.frozen.OnSelectionChanged(c.mirrorSelection(c.primary)),
		c.model.OnLayoutChanged(c.layoutChanged),
	)
}

// disconnect cancels every subscription registered by connect.
func (c *Controller) disconnect() {
	for _, cancel := range c.teardown {
		cancel()
	}
	c.teardown = nil
}

// mirrorSelection copies one pane's selection change onto target without re-entering.
func (c *Controller) mirrorSelection(target *Pane) func(SelectionChange) {
	return func(change SelectionChange) {
		if c.mirroring {
			return
		}
		c.mirroring = true
		defer func() { c.mirroring = false }()
		target.apply(change.Selected, change.Deselected)
	}
}

// layoutChanged refreshes both panes after the model refiltered or resorted.
func (c *Controller) layoutChanged() {
	if c.model == nil {
		return
	}
	if cols := c.model.ColumnCount(); cols != c.columns {
		c.columns = cols
		c.set.Reset()
		c.primary.setModel(c.model)
		c.frozen.setModel(c.model)
	}
	c.primary.clampToModel()
	c.frozen.clampToModel()
	c.primary.ClearSelection()
	c.frozen.ClearSelection()
	c.UpdateGeometry()
	c.reconcileFocus()
}

// ToggleFreeze freezes col when unfrozen and unfreezes it otherwise. Out-of-range columns and
// calls before a model is attached are ignored. It reports whether col is frozen afterwards.
func (c *Controller) ToggleFreeze(col int) bool {
	if c.model == nil || col < 0 || col >= c.columns {
		return c.set.Contains(col)
	}
	if !c.baseCaptured {
		c.baseLeftMargin = c.primary.Margins().Left
		c.baseCaptured = true
	}
	frozen := c.set.Toggle(col)
	c.UpdateGeometry()
	c.reconcileFocus()
	c.logger.Debug("column freeze toggled", "column", col, "frozen", frozen, "set", c.set.Columns())
	return frozen
}

// RestoreFrozen freezes cols in order, skipping columns already frozen.
func (c *Controller) RestoreFrozen(cols []int) {
	for _, col := range cols {
		if !c.set.Contains(col) {
			c.ToggleFreeze(col)
		}
	}
}

// IsFrozen reports whether col is frozen.
func (c *Controller) IsFrozen(col int) bool {
	return c.set.Contains(col)
}

// FrozenColumns returns the frozen columns in freeze order.
func (c *Controller) FrozenColumns() []int {
	return c.set.Columns()
}

// ResetFrozen unfreezes every column.
func (c *Controller) ResetFrozen() {
	if c.set.Len() == 0 {
		return
	}
	c.set.Reset()
	c.UpdateGeometry()
	c.reconcileFocus()
}

// SetColumnDelegate installs a delegate built by factory on both panes for col.
func (c *Controller) SetColumnDelegate(col int, factory DelegateFactory) {
	if col < 0 {
		return
	}
	if factory == nil {
		c.primary.SetDelegate(col, nil)
		c.frozen.SetDelegate(col, nil)
		return
	}
	c.primary.SetDelegate(col, factory(PanePrimary))
	c.frozen.SetDelegate(col, factory(PaneFrozen))
}

// ResizeColumn sets a column width on the primary pane. The frozen pane follows it.
func (c *Controller) ResizeColumn(col, width int) {
	c.primary.SetColumnWidth(col, width)
}

// ResizeRow sets a row height on the primary pane. The frozen pane follows it.
func (c *Controller) ResizeRow(row, height int) {
	c.primary.SetRowHeight(row, height)
}

// Resize sets the outer frame size and recomputes geometry.
func (c *Controller) Resize(width, height int) {
	c.frameWidth = max(0, width)
	c.frameHeight = max(0, height)
	c.UpdateGeometry()
}

// UpdateGeometry recomputes column visibility, margins and pane rectangles from the frozen set.
func (c *Controller) UpdateGeometry() {
	frozenWidth := 0
	for col := 0; col < c.columns; col++ {
		isFrozen := c.set.Contains(col)
		c.frozen.SetColumnHidden(col, !isFrozen)
		c.primary.SetColumnHidden(col, isFrozen)
		if isFrozen {
			frozenWidth += c.primary.ColumnWidth(col)
		}
	}
	c.frozen.setOrder(c.set.Columns())
	c.frozen.SetRowHeaderVisible(c.set.Len() > 0)

	if c.baseCaptured {
		margins := c.primary.Margins()
		margins.Left = c.baseLeftMargin + frozenWidth
		c.primary.SetMargins(margins)
	}

	frame := c.cfg.FrameWidth
	c.primary.SetGeometry(Rect{Width: c.frameWidth, Height: c.frameHeight})
	viewportHeight := c.frameHeight - 2*frame - c.cfg.HeaderHeight
	c.primary.setViewport(c.frameWidth-2*frame-c.primary.Margins().Left, viewportHeight)

	paneWidth := frozenWidth
	if c.set.Len() > 0 {
		paneWidth += c.cfg.RowHeaderWidth
	}
	c.frozen.SetGeometry(Rect{
		X:      frame,
		Y:      frame,
		Width:  paneWidth,
		Height: max(0, viewportHeight) + c.cfg.HeaderHeight,
	})
	c.frozen.setViewport(frozenWidth, viewportHeight)

	c.primary.clampToModel()
	c.frozen.clampToModel()
}

// reconcileFocus keeps focus on a pane that shows the current column.
func (c *Controller) reconcileFocus() {
	switch c.focus {
	case PaneFrozen:
		if c.set.Len() == 0 {
			row := c.frozen.CurrentIndex().Row
			c.focusPane(PanePrimary)
			if cols := c.primary.VisualColumns(); len(cols) > 0 {
				c.primary.SetCurrentIndex(Index{Row: row, Column: cols[0]})
			}
			return
		}
		if cur := c.frozen.CurrentIndex(); !c.set.Contains(cur.Column) {
			cols := c.frozen.VisualColumns()
			c.frozen.SetCurrentIndex(Index{Row: cur.Row, Column: cols[len(cols)-1]})
		}
	default:
		cur := c.primary.CurrentIndex()
		if !c.set.Contains(cur.Column) {
			return
		}
		// The cursor column moved into the frozen pane; follow it there.
		c.frozen.SetCurrentIndex(cur)
		c.focusPane(PaneFrozen)
		if cols := c.primary.VisualColumns(); len(cols) > 0 {
			c.primary.SetCurrentIndex(Index{Row: cur.Row, Column: cols[0]})
		}
	}
}

// SetFocus moves keyboard focus. Focus stays on the primary pane while nothing is frozen.
func (c *Controller) SetFocus(kind PaneKind) {
	if kind == PaneFrozen && c.set.Len() == 0 {
		return
	}
	c.focusPane(kind)
}

// focusPane updates focus flags on both panes.
func (c *Controller) focusPane(kind PaneKind) {
	c.focus = kind
	c.primary.focused = kind == PanePrimary
	c.frozen.focused = kind == PaneFrozen
}

// FocusedPane returns the pane holding keyboard focus.
func (c *Controller) FocusedPane() PaneKind {
	return c.focus
}

// focusedPane returns the pane value holding keyboard focus.
func (c *Controller) focusedPane() *Pane {
	if c.focus == PaneFrozen {
		return c.frozen
	}
	return c.primary
}

// CurrentIndex returns the cursor of the focused pane.
func (c *Controller) CurrentIndex() Index {
	return c.focusedPane().CurrentIndex()
}

// MoveCursor applies a cursor action, handing focus across the pane boundary when the cursor
// leaves the last frozen column or the first unfrozen one.
func (c *Controller) MoveCursor(action CursorAction) Index {
	if c.focus == PaneFrozen {
		cur := c.frozen.CurrentIndex()
		cols := c.frozen.VisualColumns()
		if action == MoveRight && len(cols) > 0 && cur.Column == cols[len(cols)-1] {
			primaryCols := c.primary.VisualColumns()
			if len(primaryCols) == 0 {
				return cur
			}
			next := Index{Row: cur.Row, Column: primaryCols[0]}
			c.focusPane(PanePrimary)
			c.primary.SetCurrentIndex(next)
			c.ScrollTo(next)
			return next
		}
		next := c.frozen.MoveCursor(action)
		c.frozen.SetCurrentIndex(next)
		c.ScrollTo(next)
		return next
	}

	if action == MoveLeft && c.set.Len() > 0 {
		cur := c.primary.CurrentIndex()
		primaryCols := c.primary.VisualColumns()
		if len(primaryCols) == 0 || cur.Column == primaryCols[0] {
			frozenCols := c.frozen.VisualColumns()
			next := Index{Row: cur.Row, Column: frozenCols[len(frozenCols)-1]}
			c.focusPane(PaneFrozen)
			c.frozen.SetCurrentIndex(next)
			c.ScrollTo(next)
			return next
		}
	}
	next := c.primary.MoveCursor(action)
	c.primary.SetCurrentIndex(next)
	c.ScrollTo(next)
	return next
}

// ScrollTo brings idx into view. Frozen columns never scroll the primary pane horizontally;
// only the shared vertical offset follows them.
func (c *Controller) ScrollTo(idx Index) {
	if c.set.Contains(idx.Column) {
		c.frozen.ScrollTo(idx)
		return
	}
	c.primary.ScrollTo(idx)
}

// SelectRows changes the selection of the focused pane; the other pane mirrors it.
func (c *Controller) SelectRows(rows []int, flag SelectionFlag) {
	c.focusedPane().SelectRows(rows, flag)
}

// Sort sets the sort indicator on the focused pane, which sorts the model and mirrors it.
func (c *Controller) Sort(col int, order domain.SortOrder) {
	c.focusedPane().SetSortIndicator(col, order)
}
