package filter

import (
	"slices"
	"testing"
	"time"

	"github.com/hylla/packgrid/internal/domain"
)

// countingProvider records which columns were read.
type countingProvider struct {
	Provider
	reads map[int]int
}

// Cell records the read and forwards it.
func (p *countingProvider) Cell(row, col int) (domain.Cell, bool) {
	p.reads[col]++
	return p.Provider.Cell(row, col)
}

// textCells converts plain strings into cells.
func textCells(rows ...[]string) [][]domain.Cell {
	out := make([][]domain.Cell, 0, len(rows))
	for _, row := range rows {
		cells := make([]domain.Cell, 0, len(row))
		for _, value := range row {
			cells = append(cells, domain.Cell{Value: value})
		}
		out = append(out, cells)
	}
	return out
}

// newTestTable builds a table with text columns unless kinds are given.
func newTestTable(t *testing.T, columns []domain.ColumnDef, rows [][]domain.Cell) *domain.Table {
	t.Helper()
	table, err := domain.NewTable(domain.TableInput{
		ID:      "t1",
		Name:    "land_units_tables",
		Columns: columns,
		Rows:    rows,
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return &table
}

// textColumns returns n text column definitions.
func textColumns(names ...string) []domain.ColumnDef {
	out := make([]domain.ColumnDef, 0, len(names))
	for _, name := range names {
		out = append(out, domain.ColumnDef{Name: name, Kind: domain.ColumnKindText})
	}
	return out
}

// visibleRows returns the visible source rows in source order.
func visibleRows(e *Engine) []int {
	out := make([]int, 0, e.TotalRowCount())
	for row := 0; row < e.TotalRowCount(); row++ {
		if e.IsRowVisible(row) {
			out = append(out, row)
		}
	}
	return out
}

// assertRows fails when got differs from want.
func assertRows(t *testing.T, label string, got, want []int) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
}

// TestEmptyConfigurationShowsEveryRow verifies the empty fast path and blank-pattern rules.
func TestEmptyConfigurationShowsEveryRow(t *testing.T) {
	table := newTestTable(t, textColumns("key", "unit"), textCells(
		[]string{"orc_warrior", "v1"},
		[]string{"elf", "v2"},
		[]string{"", ""},
	))
	engine := NewEngine(table)
	engine.SetConfiguration(nil)
	assertRows(t, "visible rows", engine.SourceRows(), []int{0, 1, 2})

	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "", Negate: true, UseRegex: true, GroupID: 0},
		{Column: 1, Pattern: "", PassIfBlank: true, GroupID: 4},
	})
	assertRows(t, "visible rows with blank patterns", engine.SourceRows(), []int{0, 1, 2})
}

// TestSingleLiteralRule verifies plain containment and its negation.
func TestSingleLiteralRule(t *testing.T) {
	table := newTestTable(t, textColumns("key"), textCells(
		[]string{"orc_warrior"},
		[]string{"elf"},
	))
	engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "orc", GroupID: 0},
	}))
	assertRows(t, "contains orc", engine.SourceRows(), []int{0})

	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "orc", GroupID: 0, Negate: true},
	})
	assertRows(t, "not orc", engine.SourceRows(), []int{1})
	if engine.MapFromSource(0) != -1 {
		t.Fatalf("MapFromSource(0) = %d, want -1 for hidden row", engine.MapFromSource(0))
	}
	if engine.MapFromSource(1) != 0 || engine.MapToSource(0) != 1 {
		t.Fatalf("mapping = (%d,%d), want (0,1)", engine.MapFromSource(1), engine.MapToSource(0))
	}
}

// TestGroupsCombineWithAndInsideOrAcross verifies grouping semantics.
func TestGroupsCombineWithAndInsideOrAcross(t *testing.T) {
	table := newTestTable(t, textColumns("key", "version"), textCells(
		[]string{"orc", "v2"},
		[]string{"elf", "anything"},
		[]string{"orc", "v3"},
	))
	engine := NewEngine(table)
	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "orc", GroupID: 0},
		{Column: 1, Pattern: "v2", GroupID: 0},
		{Column: 0, Pattern: "elf", GroupID: 1},
	})
	assertRows(t, "visible rows", engine.SourceRows(), []int{0, 1})

	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "orc", GroupID: 7},
		{Column: 1, Pattern: "v", GroupID: 7},
	})
	assertRows(t, "single group AND", engine.SourceRows(), []int{0, 2})
}

// TestGroupEvaluationShortCircuits verifies later groups are not read once one group passes.
func TestGroupEvaluationShortCircuits(t *testing.T) {
	table := newTestTable(t, textColumns("key", "notes"), textCells(
		[]string{"orc", "x"},
		[]string{"orc", "y"},
	))
	provider := &countingProvider{Provider: table, reads: map[int]int{}}
	engine := NewEngine(provider)
	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 1, Pattern: "[a-z]+", UseRegex: true, GroupID: 9},
		{Column: 0, Pattern: "orc", GroupID: 2},
	})
	assertRows(t, "visible rows", engine.SourceRows(), []int{0, 1})
	if provider.reads[1] != 0 {
		t.Fatalf("column 1 reads = %d, want 0 after group 2 passed", provider.reads[1])
	}
}

// TestNegateInvertsOutcome checks negation against literal and regex rules over varied text.
func TestNegateInvertsOutcome(t *testing.T) {
	values := []string{"orc_warrior", "ORC", "elf", "", "goblin orc", "dwarf"}
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	table := newTestTable(t, textColumns("key"), textCells(rows...))

	cases := []domain.MatchRule{
		{Column: 0, Pattern: "orc"},
		{Column: 0, Pattern: "orc", CaseSensitive: true},
		{Column: 0, Pattern: "^o.c", UseRegex: true},
		{Column: 0, Pattern: "orc|elf", UseRegex: true, CaseSensitive: true},
		{Column: 0, Pattern: "r$", UseRegex: true},
	}
	for _, rule := range cases {
		engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{rule}))
		plain := make([]bool, len(values))
		for row := range values {
			plain[row] = engine.IsRowVisible(row)
		}
		negated := rule
		negated.Negate = true
		engine.SetConfiguration(domain.FilterConfiguration{negated})
		for row := range values {
			if got := engine.IsRowVisible(row); got == plain[row] {
				t.Fatalf("rule %+v row %q: negated visible = %t, plain = %t", rule, values[row], got, plain[row])
			}
		}
	}
}

// TestRegexCaseSensitivity verifies the case flag applies to regex rules.
func TestRegexCaseSensitivity(t *testing.T) {
	table := newTestTable(t, textColumns("key"), textCells(
		[]string{"ORC_boss"},
		[]string{"orc_grunt"},
	))
	engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "^orc", UseRegex: true},
	}))
	assertRows(t, "case-insensitive", engine.SourceRows(), []int{0, 1})

	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "^orc", UseRegex: true, CaseSensitive: true},
	})
	assertRows(t, "case-sensitive", engine.SourceRows(), []int{1})
}

// TestInvalidRegexIsNoConstraint verifies a half-typed pattern never hides rows.
func TestInvalidRegexIsNoConstraint(t *testing.T) {
	table := newTestTable(t, textColumns("key", "version"), textCells(
		[]string{"orc", "v2"},
		[]string{"elf", "v3"},
	))
	engine := NewEngine(table)
	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "orc(", UseRegex: true},
	})
	assertRows(t, "invalid alone", engine.SourceRows(), []int{0, 1})

	engine.SetConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "[unclosed", UseRegex: true, Negate: true},
		{Column: 1, Pattern: "v3"},
	})
	assertRows(t, "invalid with valid sibling", engine.SourceRows(), []int{1})
}

// TestPassIfBlank verifies blank cells satisfy the rule regardless of pattern or negation.
func TestPassIfBlank(t *testing.T) {
	table := newTestTable(t, textColumns("key"), textCells(
		[]string{""},
		[]string{"orc"},
		[]string{"elf"},
	))
	for _, negate := range []bool{false, true} {
		engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
			{Column: 0, Pattern: "orc", Negate: negate, PassIfBlank: true},
		}))
		if !engine.IsRowVisible(0) {
			t.Fatalf("negate=%t: blank row hidden, want visible", negate)
		}
		if engine.IsRowVisible(1) == negate {
			t.Fatalf("negate=%t: orc row visibility = %t", negate, engine.IsRowVisible(1))
		}
	}
}

// TestPassIfEditedFromBaseline verifies edited cells bypass text evaluation.
func TestPassIfEditedFromBaseline(t *testing.T) {
	table := newTestTable(t, textColumns("key"), textCells(
		[]string{"orc"},
		[]string{"elf"},
		[]string{"dwarf"},
	))
	if err := table.SetValue(1, 0, "high_elf", time.Now()); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "zzz", PassIfEditedFromBaseline: true},
	}))
	assertRows(t, "edited rows", engine.SourceRows(), []int{1})

	if err := table.SetValue(1, 0, "elf", time.Now()); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	engine.Invalidate()
	assertRows(t, "reverted rows", engine.SourceRows(), []int{})
}

// TestCheckboxRules verifies boolean literal interpretation and negation.
func TestCheckboxRules(t *testing.T) {
	columns := []domain.ColumnDef{{Name: "is_naval", Kind: domain.ColumnKindBoolean}}
	table := newTestTable(t, columns, textCells(
		[]string{"true"},
		[]string{"false"},
		[]string{"1"},
		[]string{""},
	))
	cases := []struct {
		pattern string
		negate  bool
		want    []int
	}{
		{pattern: "true", want: []int{0, 2}},
		{pattern: "TRUE", want: []int{0, 2}},
		{pattern: "1", want: []int{0, 2}},
		{pattern: "false", want: []int{1, 3}},
		{pattern: "0", want: []int{1, 3}},
		{pattern: "true", negate: true, want: []int{1, 3}},
		{pattern: "false", negate: true, want: []int{0, 2}},
		{pattern: "yes", want: []int{}},
		{pattern: "yes", negate: true, want: []int{}},
	}
	for _, tc := range cases {
		engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
			{Column: 0, Pattern: tc.pattern, Negate: tc.negate, PassIfBlank: true},
		}))
		assertRows(t, "checkbox "+tc.pattern, engine.SourceRows(), tc.want)
	}
}

// TestTextSourceSelection verifies primary, secondary and both representations.
func TestTextSourceSelection(t *testing.T) {
	rows := [][]domain.Cell{
		{{Value: "12", Lookup: "orc_boss", HasLookup: true}},
		{{Value: "orc_7", Lookup: "orc_grunt", HasLookup: true}},
		{{Value: "orc_plain"}},
	}
	table := newTestTable(t, textColumns("unit"), rows)
	cases := []struct {
		source domain.TextSource
		want   []int
	}{
		{source: domain.TextSourcePrimary, want: []int{1, 2}},
		{source: domain.TextSourceSecondary, want: []int{0, 1, 2}},
		{source: domain.TextSourceBoth, want: []int{1, 2}},
	}
	for _, tc := range cases {
		engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
			{Column: 0, Pattern: "orc", TextSource: tc.source},
		}))
		assertRows(t, "source "+string(tc.source), engine.SourceRows(), tc.want)
	}

	engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
		{Column: 0, Pattern: "grunt", TextSource: domain.TextSourceBoth, Negate: true},
	}))
	assertRows(t, "both negated", engine.SourceRows(), []int{0, 2})
}

// TestRuleOnMissingColumnIsVacuous verifies out-of-range columns never hide rows.
func TestRuleOnMissingColumnIsVacuous(t *testing.T) {
	table := newTestTable(t, textColumns("key"), textCells(
		[]string{"orc"},
		[]string{"elf"},
	))
	engine := NewEngine(table, WithConfiguration(domain.FilterConfiguration{
		{Column: 7, Pattern: "anything"},
		{Column: -1, Pattern: "anything"},
	}))
	assertRows(t, "visible rows", engine.SourceRows(), []int{0, 1})
}

// TestCompareCheckboxesPutCheckedFirst verifies the checkbox comparator override.
func TestCompareCheckboxesPutCheckedFirst(t *testing.T) {
	columns := []domain.ColumnDef{
		{Name: "key", Kind: domain.ColumnKindText},
		{Name: "is_naval", Kind: domain.ColumnKindBoolean},
	}
	table := newTestTable(t, columns, textCells(
		[]string{"a", "false"},
		[]string{"a", "true"},
		[]string{"a", "false"},
		[]string{"a", "true"},
	))
	engine := NewEngine(table)
	if got := engine.Compare(1, 0, 1); got >= 0 {
		t.Fatalf("Compare(checked, unchecked) = %d, want < 0", got)
	}
	if got := engine.Compare(1, 3, 1); got != 0 {
		t.Fatalf("Compare(checked, checked) = %d, want 0", got)
	}

	engine.Sort(1, domain.SortAscending)
	assertRows(t, "ascending", engine.SourceRows(), []int{1, 3, 0, 2})
	engine.Sort(1, domain.SortDescending)
	assertRows(t, "descending", engine.SourceRows(), []int{0, 2, 1, 3})
}

// TestSortUsesTypedOrder verifies numeric and lexical ordering plus unsorted restore.
func TestSortUsesTypedOrder(t *testing.T) {
	columns := []domain.ColumnDef{
		{Name: "key", Kind: domain.ColumnKindText},
		{Name: "cost", Kind: domain.ColumnKindInteger},
		{Name: "speed", Kind: domain.ColumnKindFloat},
	}
	table := newTestTable(t, columns, textCells(
		[]string{"c", "100", "2.5"},
		[]string{"a", "9", "10"},
		[]string{"b", "10", "2.25"},
	))
	engine := NewEngine(table)

	engine.Sort(1, domain.SortAscending)
	assertRows(t, "cost asc", engine.SourceRows(), []int{1, 2, 0})
	engine.Sort(2, domain.SortAscending)
	assertRows(t, "speed asc", engine.SourceRows(), []int{2, 0, 1})
	engine.Sort(0, domain.SortDescending)
	assertRows(t, "key desc", engine.SourceRows(), []int{0, 2, 1})
	if engine.SortColumn() != 0 || engine.SortOrder() != domain.SortDescending {
		t.Fatalf("sort state = (%d,%s), want (0,desc)", engine.SortColumn(), engine.SortOrder())
	}

	engine.SetConfiguration(domain.FilterConfiguration{{Column: 0, Pattern: "a|c", UseRegex: true}})
	assertRows(t, "filtered key desc", engine.SourceRows(), []int{0, 1})
	cell, ok := engine.Cell(0, 0)
	if !ok || cell.Value != "c" {
		t.Fatalf("Cell(0,0) = %+v,%t, want c", cell, ok)
	}

	engine.Sort(-1, domain.SortAscending)
	assertRows(t, "unsorted", engine.SourceRows(), []int{0, 1})
}

// TestNotifications verifies visible-count changes fire once per change and layout fires per pass.
func TestNotifications(t *testing.T) {
	table := newTestTable(t, textColumns("key"), textCells(
		[]string{"orc"},
		[]string{"elf"},
	))
	engine := NewEngine(table)

	var counts []VisibleCount
	layouts := 0
	cancelCount := engine.OnVisibleCountChanged(func(visible, total int) {
		counts = append(counts, VisibleCount{Visible: visible, Total: total})
	})
	cancelLayout := engine.OnLayoutChanged(func() { layouts++ })

	rules := domain.FilterConfiguration{{Column: 0, Pattern: "orc"}}
	engine.SetConfiguration(rules)
	engine.SetConfiguration(rules)
	engine.SetConfiguration(domain.FilterConfiguration{{Column: 0, Pattern: "dwarf"}})

	want := []VisibleCount{{Visible: 1, Total: 2}, {Visible: 0, Total: 2}}
	if !slices.Equal(counts, want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	if layouts != 3 {
		t.Fatalf("layouts = %d, want 3", layouts)
	}

	cancelCount()
	cancelLayout()
	engine.SetConfiguration(nil)
	if len(counts) != 2 || layouts != 3 {
		t.Fatalf("notifications after cancel = (%d,%d), want (2,3)", len(counts), layouts)
	}
}

// TestSetProviderResetsMapping verifies swapping data re-evaluates the active rules.
func TestSetProviderResetsMapping(t *testing.T) {
	first := newTestTable(t, textColumns("key"), textCells([]string{"orc"}, []string{"elf"}))
	second := newTestTable(t, textColumns("key"), textCells([]string{"elf"}, []string{"orc"}, []string{"orc_boss"}))

	engine := NewEngine(first, WithConfiguration(domain.FilterConfiguration{{Column: 0, Pattern: "orc"}}))
	var last VisibleCount
	engine.OnVisibleCountChanged(func(visible, total int) {
		last = VisibleCount{Visible: visible, Total: total}
	})
	engine.SetProvider(second)
	assertRows(t, "second provider", engine.SourceRows(), []int{1, 2})
	if last != (VisibleCount{Visible: 2, Total: 3}) {
		t.Fatalf("last count = %+v, want {2 3}", last)
	}

	engine.SetProvider(nil)
	if engine.RowCount() != 0 || engine.ColumnCount() != 0 {
		t.Fatalf("nil provider counts = (%d,%d), want (0,0)", engine.RowCount(), engine.ColumnCount())
	}
}
