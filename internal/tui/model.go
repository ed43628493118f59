package tui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/hylla/packgrid/internal/app"
	"github.com/hylla/packgrid/internal/domain"
	"github.com/hylla/packgrid/internal/filter"
	"github.com/hylla/packgrid/internal/frozen"
)

// Service is the table surface the editor reads and writes.
type Service interface {
	GetTable(context.Context, string) (domain.Table, error)
	GetTableState(context.Context, string) (domain.TableState, error)
	SaveTableState(context.Context, domain.TableState) error
	SetCellValue(context.Context, app.SetCellInput) (domain.Table, error)
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeFilter
	modeEditCell
	modeHelp
)

// grid frame constants shared with the frozen controller.
const (
	gridFrameWidth   = 1
	gridHeaderHeight = 1
)

// loadedMsg carries a table and its saved editor state.
type loadedMsg struct {
	table domain.Table
	state domain.TableState
	err   error
}

// cellSavedMsg carries the table after a cell edit.
type cellSavedMsg struct {
	table  domain.Table
	source int
	err    error
}

// stateSavedMsg reports a saved editor state.
type stateSavedMsg struct {
	err error
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	rows int
	err  error
}

// filterDebounceMsg fires after typing pauses in the filter bar.
type filterDebounceMsg struct {
	seq int
}

// gridStats receives visible-count notifications from the filter engine.
type gridStats struct {
	visible int
	total   int
}

// Model is the bubbletea model hosting the filter engine and the frozen column controller.
type Model struct {
	svc      Service
	tableRef string
	logger   *log.Logger
	cfg      RuntimeConfig
	copyText func(string) error

	table  *domain.Table
	engine *filter.Engine
	ctrl   *frozen.Controller
	stats  *gridStats

	keys   keyMap
	help   help.Model
	md     *markdownRenderer
	styles cellStyles

	width  int
	height int
	ready  bool
	err    error
	status string
	mode   inputMode

	filters     []filterRow
	filterFocus int
	filterSeq   int

	cellInput  textinput.Model
	editSource int
	editColumn int
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, tableRef string, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	cellInput := textinput.New()
	cellInput.Prompt = "edit: "
	cellInput.CharLimit = 4096
	m := Model{
		svc:        svc,
		tableRef:   strings.TrimSpace(tableRef),
		logger:     log.New(io.Discard),
		copyText:   clipboard.WriteAll,
		cfg:        DefaultRuntimeConfig(),
		status:     "loading...",
		help:       h,
		keys:       newKeyMap(),
		md:         &markdownRenderer{},
		cellInput:  cellInput,
		editSource: -1,
		editColumn: -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.keys.applyConfig(m.cfg.Keys)
	m.styles = newCellStyles(m.cfg.Colors)
	m.stats = &gridStats{}
	m.engine = filter.NewEngine(nil, filter.WithLogger(m.logger.WithPrefix("filter")))
	m.ctrl = frozen.NewController(frozen.Config{
		FrameWidth:         gridFrameWidth,
		HeaderHeight:       gridHeaderHeight,
		RowHeaderWidth:     m.cfg.Table.RowHeaderWidth,
		DefaultColumnWidth: m.cfg.Table.DefaultColumnWidth,
		DefaultRowHeight:   1,
		Logger:             m.logger.WithPrefix("frozen"),
	})
	m.ctrl.SetModel(m.engine)
	stats, logger := m.stats, m.logger
	m.engine.OnVisibleCountChanged(func(visible, total int) {
		stats.visible = visible
		stats.total = total
		logger.Debug("visible rows changed", "visible", visible, "total", total)
	})
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadTable
}

// loadTable fetches the table and its saved state.
func (m Model) loadTable() tea.Msg {
	ctx := context.Background()
	table, err := m.svc.GetTable(ctx, m.tableRef)
	if err != nil {
		return loadedMsg{err: err}
	}
	state, err := m.svc.GetTableState(ctx, table.ID)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{table: table, state: state}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.logger.Error("table load failed", "table", m.tableRef, "err", msg.err)
			return m, nil
		}
		m.err = nil
		m.applyLoaded(msg.table, msg.state)
		m.status = "ready"
		return m, nil

	case cellSavedMsg:
		if msg.err != nil {
			m.status = "save cell failed: " + msg.err.Error()
			m.logger.Warn("cell save failed", "err", msg.err)
			return m, nil
		}
		m.replaceTable(msg.table)
		m.followSource(msg.source)
		m.status = "cell saved"
		return m, nil

	case stateSavedMsg:
		if msg.err != nil {
			m.status = "save view failed: " + msg.err.Error()
			m.logger.Warn("state save failed", "err", msg.err)
			return m, nil
		}
		m.status = "view saved"
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			m.logger.Warn("clipboard write failed", "err", msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("copied %d row(s)", msg.rows)
		return m, nil

	case filterDebounceMsg:
		if msg.seq != m.filterSeq {
			return m, nil
		}
		m.applyFilters()
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeFilter:
			return m.handleFilterKey(msg)
		case modeEditCell:
			return m.handleEditKey(msg)
		case modeHelp:
			return m.handleHelpKey(msg)
		default:
			return m.handleNormalModeKey(msg)
		}

	default:
		return m, nil
	}
}

// applyLoaded installs a freshly loaded table and restores its saved view state.
func (m *Model) applyLoaded(table domain.Table, state domain.TableState) {
	m.replaceTable(table)
	for col, def := range m.table.Columns {
		m.ctrl.SetColumnDelegate(col, columnDelegate(def, m.styles))
	}
	m.filters = filterRowsFromRules(state.Rules)
	m.filterFocus = 0
	m.engine.SetConfiguration(rulesFromRows(m.filters))
	m.applySort(state.SortColumn, state.SortOrder)
	m.ctrl.ResetFrozen()
	m.ctrl.RestoreFrozen(state.FrozenColumns)
	m.layout()
	m.logger.Info("table loaded",
		"table", m.table.Name,
		"rows", m.table.RowCount(),
		"columns", m.table.ColumnCount(),
		"rules", len(state.Rules),
		"frozen", state.FrozenColumns,
	)
}

// replaceTable swaps the provider behind the engine.
func (m *Model) replaceTable(table domain.Table) {
	m.table = &table
	m.engine.SetProvider(m.table)
}

// followSource moves the cursor to the proxy row showing source, when visible.
func (m *Model) followSource(source int) {
	row := m.engine.MapFromSource(source)
	if row < 0 {
		return
	}
	pane := m.focusedPane()
	idx := pane.CurrentIndex()
	idx.Row = row
	pane.SetCurrentIndex(idx)
	m.ctrl.ScrollTo(idx)
}

// focusedPane returns the pane holding keyboard focus.
func (m Model) focusedPane() *frozen.Pane {
	if m.ctrl.FocusedPane() == frozen.PaneFrozen {
		return m.ctrl.Frozen()
	}
	return m.ctrl.Primary()
}

// applySort sets the sort indicator and makes sure the engine follows it.
func (m *Model) applySort(col int, order domain.SortOrder) {
	if m.table == nil || col >= m.table.ColumnCount() {
		col = -1
	}
	m.ctrl.Sort(col, order)
	if m.engine.SortColumn() != col || m.engine.SortOrder() != order {
		m.engine.Sort(col, order)
	}
}

// applyFilters pushes the filter bar into the engine.
func (m *Model) applyFilters() {
	rules := rulesFromRows(m.filters)
	m.engine.SetConfiguration(rules)
	m.status = fmt.Sprintf("%d of %d rows", m.engine.RowCount(), m.engine.TotalRowCount())
}

// scheduleFilters starts a debounce timer for the current filter generation.
func (m *Model) scheduleFilters() tea.Cmd {
	m.filterSeq++
	seq := m.filterSeq
	if m.cfg.Filter.Debounce <= 0 {
		return func() tea.Msg { return filterDebounceMsg{seq: seq} }
	}
	return tea.Tick(m.cfg.Filter.Debounce, func(time.Time) tea.Msg {
		return filterDebounceMsg{seq: seq}
	})
}

// layout resizes the grid to the space left by the chrome lines.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	m.ctrl.Resize(m.width, m.gridHeight())
}

// gridHeight returns the outer height of the grid box.
func (m Model) gridHeight() int {
	chrome := 2 + len(m.filters)
	if m.mode == modeEditCell {
		chrome++
	}
	return max(gridFrameWidth*2+gridHeaderHeight+1, m.height-chrome)
}

// handleNormalModeKey handles grid keys.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadTable
	case key.Matches(msg, m.keys.toggleHelp):
		m.mode = modeHelp
		return m, nil
	}
	if m.table == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.moveLeft):
		m.ctrl.MoveCursor(frozen.MoveLeft)
	case key.Matches(msg, m.keys.moveRight):
		m.ctrl.MoveCursor(frozen.MoveRight)
	case key.Matches(msg, m.keys.moveUp):
		m.ctrl.MoveCursor(frozen.MoveUp)
	case key.Matches(msg, m.keys.moveDown):
		m.ctrl.MoveCursor(frozen.MoveDown)
	case key.Matches(msg, m.keys.pageUp):
		m.ctrl.MoveCursor(frozen.MovePageUp)
	case key.Matches(msg, m.keys.pageDown):
		m.ctrl.MoveCursor(frozen.MovePageDown)
	case key.Matches(msg, m.keys.home):
		m.ctrl.MoveCursor(frozen.MoveHome)
	case key.Matches(msg, m.keys.end):
		m.ctrl.MoveCursor(frozen.MoveEnd)

	case key.Matches(msg, m.keys.freeze):
		col := m.ctrl.CurrentIndex().Column
		if m.ctrl.ToggleFreeze(col) {
			m.status = "froze " + m.columnName(col)
		} else {
			m.status = "unfroze " + m.columnName(col)
		}
	case key.Matches(msg, m.keys.unfreezeAll):
		m.ctrl.ResetFrozen()
		m.status = "all columns unfrozen"
	case key.Matches(msg, m.keys.sort):
		col := m.ctrl.CurrentIndex().Column
		order := domain.SortAscending
		if m.engine.SortColumn() == col {
			order = m.engine.SortOrder().Toggle()
		}
		m.applySort(col, order)
		m.status = fmt.Sprintf("sorted by %s %s", m.columnName(col), order)
	case key.Matches(msg, m.keys.selectRow):
		m.ctrl.SelectRows([]int{m.ctrl.CurrentIndex().Row}, frozen.Toggle)
	case key.Matches(msg, m.keys.copyRows):
		return m, m.copyRows()
	case key.Matches(msg, m.keys.widen):
		m.resizeCurrentColumn(2)
	case key.Matches(msg, m.keys.narrow):
		m.resizeCurrentColumn(-2)

	case key.Matches(msg, m.keys.filter):
		if len(m.filters) == 0 {
			m.filters = append(m.filters, newFilterRow(m.ctrl.CurrentIndex().Column, m.cfg.Filter))
		}
		return m, m.enterFilterMode(clamp(m.filterFocus, 0, len(m.filters)-1))
	case key.Matches(msg, m.keys.addFilter):
		m.filters = append(m.filters, newFilterRow(m.ctrl.CurrentIndex().Column, m.cfg.Filter))
		return m, m.enterFilterMode(len(m.filters) - 1)
	case key.Matches(msg, m.keys.removeFilter):
		if len(m.filters) == 0 {
			return m, nil
		}
		m.filters = m.filters[:len(m.filters)-1]
		m.filterFocus = clamp(m.filterFocus, 0, max(0, len(m.filters)-1))
		m.applyFilters()
		m.layout()

	case key.Matches(msg, m.keys.editCell):
		return m.startCellEdit()
	case key.Matches(msg, m.keys.saveState):
		m.status = "saving view..."
		return m, m.saveState()
	}
	return m, nil
}

// copyRows writes the selected rows, or the cursor row, to the clipboard as tab-separated text
// in visible order.
func (m Model) copyRows() tea.Cmd {
	rows := m.ctrl.Primary().SelectedRows()
	if len(rows) == 0 {
		if row := m.ctrl.CurrentIndex().Row; row >= 0 && row < m.engine.RowCount() {
			rows = []int{row}
		}
	}
	if len(rows) == 0 {
		return nil
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		fields := make([]string, m.engine.ColumnCount())
		for col := range fields {
			if cell, ok := m.engine.Cell(row, col); ok {
				fields[col] = cell.EditText()
			}
		}
		lines = append(lines, strings.Join(fields, "\t"))
	}
	text, write := strings.Join(lines, "\n"), m.copyText
	return func() tea.Msg {
		return copiedMsg{rows: len(lines), err: write(text)}
	}
}

// resizeCurrentColumn changes the width of the cursor column within configured bounds.
func (m *Model) resizeCurrentColumn(delta int) {
	col := m.ctrl.CurrentIndex().Column
	width := clamp(m.ctrl.Primary().ColumnWidth(col)+delta, m.cfg.Table.MinColumnWidth, m.cfg.Table.MaxColumnWidth)
	m.ctrl.ResizeColumn(col, width)
}

// enterFilterMode focuses the filter row at idx.
func (m *Model) enterFilterMode(idx int) tea.Cmd {
	m.mode = modeFilter
	m.layout()
	return m.focusFilter(idx)
}

// focusFilter moves input focus to the filter row at idx.
func (m *Model) focusFilter(idx int) tea.Cmd {
	if len(m.filters) == 0 {
		return nil
	}
	if m.filterFocus >= 0 && m.filterFocus < len(m.filters) {
		m.filters[m.filterFocus].input.Blur()
	}
	m.filterFocus = clamp(idx, 0, len(m.filters)-1)
	return m.filters[m.filterFocus].input.Focus()
}

// leaveFilterMode blurs the filter bar and applies pending edits at once.
func (m *Model) leaveFilterMode() {
	if m.filterFocus >= 0 && m.filterFocus < len(m.filters) {
		m.filters[m.filterFocus].input.Blur()
	}
	m.filterSeq++
	m.mode = modeNone
	m.applyFilters()
	m.layout()
}

// handleFilterKey handles keys while the filter bar has focus. Toggles apply immediately;
// typed patterns apply after the debounce delay.
func (m Model) handleFilterKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if len(m.filters) == 0 {
		m.mode = modeNone
		m.layout()
		return m, nil
	}
	row := &m.filters[m.filterFocus]
	switch msg.String() {
	case "esc", "enter":
		m.leaveFilterMode()
		return m, nil
	case "tab":
		return m, m.focusFilter((m.filterFocus + 1) % len(m.filters))
	case "shift+tab":
		return m, m.focusFilter((m.filterFocus - 1 + len(m.filters)) % len(m.filters))
	case "alt+left", "alt+right":
		cols := m.table.ColumnCount()
		if cols > 0 {
			step := 1
			if msg.String() == "alt+left" {
				step = cols - 1
			}
			row.rule.Column = (row.rule.Column + step) % cols
		}
	case "ctrl+n":
		m.filters = append(m.filters, newFilterRow(row.rule.Column, m.cfg.Filter))
		m.layout()
		return m, m.focusFilter(len(m.filters) - 1)
	case "ctrl+k":
		m.filters = append(m.filters[:m.filterFocus], m.filters[m.filterFocus+1:]...)
		if len(m.filters) == 0 {
			m.leaveFilterMode()
			return m, nil
		}
		m.filterFocus = clamp(m.filterFocus, 0, len(m.filters)-1)
		m.layout()
		cmd := m.filters[m.filterFocus].input.Focus()
		m.applyFilters()
		return m, cmd
	case "ctrl+x":
		row.rule.Negate = !row.rule.Negate
	case "ctrl+r":
		row.rule.UseRegex = !row.rule.UseRegex
	case "ctrl+t":
		row.rule.CaseSensitive = !row.rule.CaseSensitive
	case "ctrl+b":
		row.rule.PassIfBlank = !row.rule.PassIfBlank
	case "ctrl+e":
		row.rule.PassIfEditedFromBaseline = !row.rule.PassIfEditedFromBaseline
	case "ctrl+o":
		row.rule.TextSource = row.rule.Source().Next()
	case "ctrl+g":
		row.rule.GroupID = (row.rule.GroupID + 1) % (maxFilterGroup + 1)
	default:
		before := row.input.Value()
		var cmd tea.Cmd
		row.input, cmd = row.input.Update(msg)
		if row.input.Value() == before {
			return m, cmd
		}
		return m, batchCmds(cmd, m.scheduleFilters())
	}
	m.filterSeq++
	m.applyFilters()
	return m, nil
}

// startCellEdit opens the cell editor. Boolean cells toggle in place.
func (m Model) startCellEdit() (tea.Model, tea.Cmd) {
	idx := m.ctrl.CurrentIndex()
	source := m.engine.MapToSource(idx.Row)
	cell, ok := m.table.Cell(source, idx.Column)
	if source < 0 || !ok {
		m.status = "no cell to edit"
		return m, nil
	}
	if cell.IsCheckable() {
		value := "true"
		if cell.IsChecked() {
			value = "false"
		}
		return m, m.saveCell(source, idx.Column, value)
	}
	m.editSource = source
	m.editColumn = idx.Column
	m.cellInput.SetValue(cell.EditText())
	m.cellInput.CursorEnd()
	m.mode = modeEditCell
	m.layout()
	return m, m.cellInput.Focus()
}

// handleEditKey handles keys while the cell editor is open.
func (m Model) handleEditKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeCellEdit()
		m.status = "edit cancelled"
		return m, nil
	case "enter":
		source, col, value := m.editSource, m.editColumn, m.cellInput.Value()
		m.closeCellEdit()
		m.status = "saving cell..."
		return m, m.saveCell(source, col, value)
	}
	var cmd tea.Cmd
	m.cellInput, cmd = m.cellInput.Update(msg)
	return m, cmd
}

// closeCellEdit leaves edit mode.
func (m *Model) closeCellEdit() {
	m.cellInput.Blur()
	m.mode = modeNone
	m.editSource = -1
	m.editColumn = -1
	m.layout()
}

// handleHelpKey closes the help overlay.
func (m Model) handleHelpKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case msg.String() == "esc", key.Matches(msg, m.keys.toggleHelp), key.Matches(msg, m.keys.quit):
		m.mode = modeNone
	}
	return m, nil
}

// saveCell stores one edited cell.
func (m Model) saveCell(source, col int, value string) tea.Cmd {
	tableID := m.table.ID
	svc := m.svc
	return func() tea.Msg {
		table, err := svc.SetCellValue(context.Background(), app.SetCellInput{
			Table:  tableID,
			Row:    source,
			Column: col,
			Value:  value,
		})
		return cellSavedMsg{table: table, source: source, err: err}
	}
}

// currentState captures frozen columns, rules and sort for persistence.
func (m Model) currentState() domain.TableState {
	state := domain.NewTableState(m.table.ID)
	state.FrozenColumns = m.ctrl.FrozenColumns()
	state.Rules = rulesFromRows(m.filters)
	state.SortColumn = m.engine.SortColumn()
	state.SortOrder = m.engine.SortOrder()
	return state
}

// saveState persists the current view.
func (m Model) saveState() tea.Cmd {
	state := m.currentState()
	svc := m.svc
	return func() tea.Msg {
		return stateSavedMsg{err: svc.SaveTableState(context.Background(), state)}
	}
}

// columnName returns the header of col.
func (m Model) columnName(col int) string {
	if m.table == nil || col < 0 || col >= len(m.table.Columns) {
		return "#" + strconv.Itoa(col)
	}
	return m.table.Columns[col].Name
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the full screen content for the current mode.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready || m.table == nil {
		return "loading..."
	}
	if m.mode == modeHelp {
		body := m.md.render(helpMarkdown(m.keys), max(minHelpWrap, m.width-4))
		return body + "\n\n" + m.styles.muted.Render("esc / ? close help")
	}

	sections := []string{m.renderTitle()}
	sections = append(sections, renderFilterBar(m.filters, m.filterFocus, m.mode == modeFilter, m.table, m.styles)...)
	sections = append(sections, m.renderGrid())
	if m.mode == modeEditCell {
		sections = append(sections, m.cellInput.View())
	}
	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

// renderTitle renders table name, visible counter, frozen count and sort.
func (m Model) renderTitle() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	parts := []string{
		titleStyle.Render("packgrid · " + m.table.Name),
		m.styles.accent.Render(fmt.Sprintf("%d/%d rows", m.stats.visible, m.stats.total)),
	}
	if frozenCols := m.ctrl.FrozenColumns(); len(frozenCols) > 0 {
		parts = append(parts, m.styles.muted.Render(fmt.Sprintf("%d frozen", len(frozenCols))))
	}
	if col := m.engine.SortColumn(); col >= 0 {
		parts = append(parts, m.styles.muted.Render("sort "+m.columnName(col)+" "+m.engine.SortOrder().String()))
	}
	return strings.Join(parts, "  ")
}

// renderFooter renders the status line and short help.
func (m Model) renderFooter() string {
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	line := statusStyle.Render(m.status)
	if m.mode == modeFilter {
		return line + "  " + m.styles.muted.Render("tab next • ctrl+x not • ctrl+r regex • ctrl+o source • ctrl+g group • enter apply")
	}
	return line + "  " + m.help.View(m.keys)
}

// renderGrid renders the frozen pane and the visible primary columns inside a rounded box.
func (m Model) renderGrid() string {
	primary := m.ctrl.Primary()
	frozenPane := m.ctrl.Frozen()
	innerWidth := max(1, m.width-2*gridFrameWidth)
	bodyHeight := max(1, m.gridHeight()-2*gridFrameWidth-gridHeaderHeight)

	frozenCols := frozenPane.VisualColumns()
	primaryCols := primary.ColumnsInView()
	rowHeaderWidth := m.cfg.Table.RowHeaderWidth

	var header strings.Builder
	header.WriteString(m.styles.muted.Render(fitCell("#", rowHeaderWidth)))
	for _, col := range frozenCols {
		header.WriteString(m.renderHeaderCell(col, frozenPane.ColumnWidth(col), true))
	}
	for _, col := range primaryCols {
		header.WriteString(m.renderHeaderCell(col, primary.ColumnWidth(col), false))
	}
	lines := []string{header.String()}

	first, count := primary.RowsInView()
	for row := first; row < first+count && len(lines) <= bodyHeight; row++ {
		var line strings.Builder
		source := m.engine.MapToSource(row)
		rowLabel := m.styles.muted
		if primary.IsRowSelected(row) {
			rowLabel = m.styles.accent
		}
		line.WriteString(rowLabel.Render(fitCell(strconv.Itoa(source+1), rowHeaderWidth)))
		for _, col := range frozenCols {
			line.WriteString(m.renderCell(frozenPane, row, col))
		}
		for _, col := range primaryCols {
			line.WriteString(m.renderCell(primary, row, col))
		}
		lines = append(lines, line.String())
	}
	if m.engine.RowCount() == 0 {
		msg := "no rows match the current filters"
		if m.engine.TotalRowCount() == 0 {
			msg = "table has no rows"
		}
		lines = append(lines, m.styles.muted.Render("  "+msg))
	}
	for len(lines) < bodyHeight+gridHeaderHeight {
		lines = append(lines, "")
	}

	clip := lipgloss.NewStyle().MaxWidth(innerWidth)
	for idx, line := range lines {
		line = clip.Render(line)
		if pad := innerWidth - lipgloss.Width(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		lines[idx] = line
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.cfg.Colors.Accent))
	return box.Render(strings.Join(lines, "\n"))
}

// renderHeaderCell renders a column title with its sort indicator.
func (m Model) renderHeaderCell(col, width int, pinned bool) string {
	title := m.columnName(col)
	if m.engine.SortColumn() == col {
		if m.engine.SortOrder() == domain.SortDescending {
			title += " ▼"
		} else {
			title += " ▲"
		}
	}
	style := m.styles.header
	if pinned {
		style = style.Underline(true)
	}
	return style.Render(fitCell(title, width))
}

// renderCell renders one cell through the pane delegate for its column.
func (m Model) renderCell(pane *frozen.Pane, row, col int) string {
	cell, _ := m.engine.Cell(row, col)
	width := pane.ColumnWidth(col)
	state := frozen.CellState{
		Current:  pane.HasFocus() && pane.CurrentIndex() == frozen.Index{Row: row, Column: col},
		Selected: pane.IsRowSelected(row),
		Focused:  pane.HasFocus(),
	}
	delegate := pane.Delegate(col)
	if delegate == nil {
		delegate = textDelegate{styles: m.styles, pane: pane.Kind()}
	}
	return delegate.Render(cell, width, state)
}

// batchCmds drops nil commands and avoids a batch for a single command.
func batchCmds(cmds ...tea.Cmd) tea.Cmd {
	out := make([]tea.Cmd, 0, len(cmds))
	for _, cmd := range cmds {
		if cmd != nil {
			out = append(out, cmd)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return tea.Batch(out...)
	}
}
