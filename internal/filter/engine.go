// Package filter implements the row filter engine: rule-group visibility, typed sorting and the
// proxy row mapping that views render through.
package filter

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/hylla/packgrid/internal/domain"
	"github.com/hylla/packgrid/internal/notify"
)

// Provider supplies cells by source row and column.
type Provider interface {
	RowCount() int
	ColumnCount() int
	Cell(row, col int) (domain.Cell, bool)
}

// VisibleCount reports the number of visible rows out of the provider total.
type VisibleCount struct {
	Visible int
	Total   int
}

// Option mutates engine construction settings.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfiguration sets the initial rule list.
func WithConfiguration(rules domain.FilterConfiguration) Option {
	return func(e *Engine) {
		e.rules = rules.Clone()
	}
}

// WithSort sets the initial sort column and order. A negative column keeps source order.
func WithSort(column int, order domain.SortOrder) Option {
	return func(e *Engine) {
		e.sortColumn = column
		e.sortOrder = order
	}
}

// emptyProvider backs an engine constructed without data.
type emptyProvider struct{}

func (emptyProvider) RowCount() int                     { return 0 }
func (emptyProvider) ColumnCount() int                  { return 0 }
func (emptyProvider) Cell(int, int) (domain.Cell, bool) { return domain.Cell{}, false }

// Engine filters and sorts provider rows. It is not safe for concurrent use; callers drive it
// from a single event loop.
type Engine struct {
	provider Provider
	logger   *log.Logger

	rules      domain.FilterConfiguration
	groups     [][]compiledRule
	generation uint64

	sortColumn int
	sortOrder  domain.SortOrder

	// rows maps proxy rows to source rows; sourceToProxy is the inverse with -1 for hidden rows.
	rows          []int
	sourceToProxy []int

	lastCount VisibleCount

	visibleChanged notify.List[VisibleCount]
	layoutChanged  notify.List[struct{}]
}

// NewEngine constructs an engine over provider and evaluates it immediately.
func NewEngine(provider Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:   provider,
		logger:     log.New(io.Discard),
		sortColumn: -1,
	}
	if e.provider == nil {
		e.provider = emptyProvider{}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.compile()
	e.rebuild()
	e.lastCount = VisibleCount{Visible: len(e.rows), Total: e.provider.RowCount()}
	return e
}

// SetConfiguration replaces the active rules and re-evaluates every row.
func (e *Engine) SetConfiguration(rules domain.FilterConfiguration) {
	e.rules = rules.Clone()
	e.compile()
	e.refresh()
}

// Configuration returns a copy of the active rules.
func (e *Engine) Configuration() domain.FilterConfiguration {
	return e.rules.Clone()
}

// SetProvider swaps the data source and resets the row mapping.
func (e *Engine) SetProvider(provider Provider) {
	if provider == nil {
		provider = emptyProvider{}
	}
	e.provider = provider
	e.refresh()
}

// Provider returns the current data source.
func (e *Engine) Provider() Provider {
	return e.provider
}

// Invalidate re-evaluates visibility and order after the provider data changed.
func (e *Engine) Invalidate() {
	e.refresh()
}

// compile groups and prepares the populated rules for the current generation.
func (e *Engine) compile() {
	e.generation++
	e.groups = e.groups[:0]
	populated := e.rules.Populated()
	if len(populated) == 0 {
		e.groups = nil
		return
	}
	for _, group := range populated.Groups() {
		compiled := make([]compiledRule, 0, len(group.Rules))
		for _, rule := range group.Rules {
			cr, err := compileRule(rule)
			if err != nil {
				e.logger.Warn("ignoring invalid filter pattern", "column", rule.Column, "pattern", rule.Pattern, "err", err)
			}
			compiled = append(compiled, cr)
		}
		e.groups = append(e.groups, compiled)
	}
}

// IsRowVisible reports whether the source row passes the active rules.
func (e *Engine) IsRowVisible(sourceRow int) bool {
	if sourceRow < 0 || sourceRow >= e.provider.RowCount() {
		return false
	}
	if len(e.groups) == 0 {
		return true
	}
	for _, group := range e.groups {
		if e.groupSatisfied(group, sourceRow) {
			return true
		}
	}
	return false
}

// groupSatisfied reports whether every rule of one group holds for the row.
func (e *Engine) groupSatisfied(group []compiledRule, sourceRow int) bool {
	for _, rule := range group {
		cell, ok := e.provider.Cell(sourceRow, rule.rule.Column)
		if !rule.satisfied(cell, ok) {
			return false
		}
	}
	return true
}

// Compare orders two source rows by column. It returns a negative number when rowA sorts first.
func (e *Engine) Compare(rowA, rowB, column int) int {
	a, okA := e.provider.Cell(rowA, column)
	b, okB := e.provider.Cell(rowB, column)
	return compareCells(a, okA, b, okB)
}

// Sort orders visible rows by column. A negative column restores source order.
func (e *Engine) Sort(column int, order domain.SortOrder) {
	e.sortColumn = column
	e.sortOrder = order
	e.refresh()
}

// SortColumn returns the active sort column, or -1 when unsorted.
func (e *Engine) SortColumn() int {
	return e.sortColumn
}

// SortOrder returns the active sort order.
func (e *Engine) SortOrder() domain.SortOrder {
	return e.sortOrder
}

// RowCount returns the number of visible rows.
func (e *Engine) RowCount() int {
	return len(e.rows)
}

// TotalRowCount returns the provider row count.
func (e *Engine) TotalRowCount() int {
	return e.provider.RowCount()
}

// ColumnCount returns the provider column count.
func (e *Engine) ColumnCount() int {
	return e.provider.ColumnCount()
}

// MapToSource converts a proxy row into its source row, or -1 when out of range.
func (e *Engine) MapToSource(proxyRow int) int {
	if proxyRow < 0 || proxyRow >= len(e.rows) {
		return -1
	}
	return e.rows[proxyRow]
}

// MapFromSource converts a source row into its proxy row, or -1 when hidden.
func (e *Engine) MapFromSource(sourceRow int) int {
	if sourceRow < 0 || sourceRow >= len(e.sourceToProxy) {
		return -1
	}
	return e.sourceToProxy[sourceRow]
}

// Cell returns the cell shown at a proxy row.
func (e *Engine) Cell(proxyRow, col int) (domain.Cell, bool) {
	src := e.MapToSource(proxyRow)
	if src < 0 {
		return domain.Cell{}, false
	}
	return e.provider.Cell(src, col)
}

// SourceRows returns the visible source rows in display order.
func (e *Engine) SourceRows() []int {
	return slices.Clone(e.rows)
}

// OnVisibleCountChanged registers fn for changes in the visible or total row count.
func (e *Engine) OnVisibleCountChanged(fn func(visible, total int)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return e.visibleChanged.Subscribe(func(c VisibleCount) {
		fn(c.Visible, c.Total)
	})
}

// OnLayoutChanged registers fn for every refilter or resort.
func (e *Engine) OnLayoutChanged(fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	return e.layoutChanged.Subscribe(func(struct{}) {
		fn()
	})
}

// refresh rebuilds the mapping and notifies subscribers.
func (e *Engine) refresh() {
	e.rebuild()
	count := VisibleCount{Visible: len(e.rows), Total: e.provider.RowCount()}
	e.logger.Debug("filter evaluated",
		"generation", e.generation,
		"rules", len(e.rules),
		"groups", len(e.groups),
		"visible", count.Visible,
		"total", count.Total,
		"sort_column", e.sortColumn,
		"sort_order", e.sortOrder.String(),
	)
	e.layoutChanged.Emit(struct{}{})
	if count != e.lastCount {
		e.lastCount = count
		e.visibleChanged.Emit(count)
	}
}

// rebuild recomputes the visible rows and their order.
func (e *Engine) rebuild() {
	total := e.provider.RowCount()
	rows := make([]int, 0, total)
	for row := 0; row < total; row++ {
		if e.IsRowVisible(row) {
			rows = append(rows, row)
		}
	}
	if e.sortColumn >= 0 && e.sortColumn < e.provider.ColumnCount() {
		column, descending := e.sortColumn, e.sortOrder == domain.SortDescending
		slices.SortStableFunc(rows, func(a, b int) int {
			cmp := e.Compare(a, b, column)
			if descending {
				return -cmp
			}
			return cmp
		})
	}
	e.rows = rows

	if cap(e.sourceToProxy) >= total {
		e.sourceToProxy = e.sourceToProxy[:total]
	} else {
		e.sourceToProxy = make([]int, total)
	}
	for idx := range e.sourceToProxy {
		e.sourceToProxy[idx] = -1
	}
	for proxy, src := range rows {
		e.sourceToProxy[src] = proxy
	}
}
