package domain

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func unitsInput() TableInput {
	return TableInput{
		ID:   " t1 ",
		Name: "  Units  ",
		Columns: []ColumnDef{
			{Name: "key", Key: true},
			{Name: "cost", Kind: "i32"},
			{Name: "is_naval", Kind: "bool"},
		},
		Rows: [][]Cell{
			{{Value: "UNIT_WARRIOR"}, {Value: "40"}, {Value: "false"}},
			{{Value: "UNIT_GALLEY"}, {Value: "45"}},
		},
	}
}

func TestNewTableNormalizesInput(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	table, err := NewTable(unitsInput(), now)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if table.ID != "t1" || table.Name != "Units" {
		t.Fatalf("unexpected id/name %q/%q", table.ID, table.Name)
	}
	if table.Columns[0].Kind != ColumnKindText || table.Columns[1].Kind != ColumnKindInteger || table.Columns[2].Kind != ColumnKindBoolean {
		t.Fatalf("unexpected column kinds %#v", table.Columns)
	}
	if table.RowCount() != 2 || table.ColumnCount() != 3 {
		t.Fatalf("unexpected shape %dx%d", table.RowCount(), table.ColumnCount())
	}
	if len(table.Rows[1]) != 3 || table.Rows[1][2].Value != "" {
		t.Fatalf("expected short row padded, got %#v", table.Rows[1])
	}
	if table.Rows[0][1].Baseline != "40" {
		t.Fatalf("expected baseline to default to imported value, got %q", table.Rows[0][1].Baseline)
	}
	if !table.CreatedAt.Equal(now) || !table.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps %v %v", table.CreatedAt, table.UpdatedAt)
	}
}

func TestNewTableValidation(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		mutate func(*TableInput)
		want   error
	}{
		{name: "missing id", mutate: func(in *TableInput) { in.ID = " " }, want: ErrInvalidID},
		{name: "missing name", mutate: func(in *TableInput) { in.Name = "" }, want: ErrInvalidName},
		{name: "no columns", mutate: func(in *TableInput) { in.Columns = nil }, want: ErrInvalidColumn},
		{name: "blank column", mutate: func(in *TableInput) { in.Columns[1].Name = " " }, want: ErrInvalidName},
		{name: "duplicate column", mutate: func(in *TableInput) { in.Columns[1].Name = "key" }, want: ErrDuplicateColumn},
		{name: "duplicate column ignoring case", mutate: func(in *TableInput) { in.Columns[1].Name = "KEY" }, want: ErrDuplicateColumn},
		{name: "unknown kind", mutate: func(in *TableInput) { in.Columns[1].Kind = "blob" }, want: ErrInvalidColumn},
		{name: "row too long", mutate: func(in *TableInput) {
			in.Rows = append(in.Rows, []Cell{{}, {}, {}, {}})
		}, want: ErrInvalidRow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := unitsInput()
			tc.mutate(&in)
			if _, err := NewTable(in, now); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTableCellAppliesColumnMetadata(t *testing.T) {
	table, err := NewTable(unitsInput(), time.Now())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	cell, ok := table.Cell(0, 0)
	if !ok || !cell.IsKey() || cell.Kind != ColumnKindText {
		t.Fatalf("expected key text cell, got %#v ok=%t", cell, ok)
	}
	cell, ok = table.Cell(0, 2)
	if !ok || !cell.IsCheckable() || cell.IsChecked() {
		t.Fatalf("expected unchecked checkbox cell, got %#v ok=%t", cell, ok)
	}
	if _, ok := table.Cell(5, 0); ok {
		t.Fatal("expected out-of-range row to miss")
	}
	if _, ok := table.Cell(0, -1); ok {
		t.Fatal("expected negative column to miss")
	}
	if idx, ok := table.ColumnIndex(" COST "); !ok || idx != 1 {
		t.Fatalf("ColumnIndex() = %d, %t", idx, ok)
	}
}

func TestTableColumnIndexPrefersExactName(t *testing.T) {
	table := Table{Columns: []ColumnDef{{Name: "key"}, {Name: "Key"}}}
	if idx, ok := table.ColumnIndex("Key"); !ok || idx != 1 {
		t.Fatalf("ColumnIndex(Key) = %d, %t, want 1", idx, ok)
	}
	if idx, ok := table.ColumnIndex("key"); !ok || idx != 0 {
		t.Fatalf("ColumnIndex(key) = %d, %t, want 0", idx, ok)
	}
	if idx, ok := table.ColumnIndex("KEY"); !ok || idx != 0 {
		t.Fatalf("ColumnIndex(KEY) = %d, %t, want first fold match 0", idx, ok)
	}
}

func TestTableSetValueTracksBaseline(t *testing.T) {
	now := time.Now()
	table, err := NewTable(unitsInput(), now)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	later := now.Add(time.Minute)
	if err := table.SetValue(0, 1, "55", later); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	cell, _ := table.Cell(0, 1)
	if !cell.IsModified() || !cell.IsEditedFromBaseline() {
		t.Fatalf("expected modified + edited flags, got %#v", cell)
	}
	if !table.UpdatedAt.Equal(later.UTC()) {
		t.Fatalf("expected updated_at bump, got %v", table.UpdatedAt)
	}

	if err := table.SetValue(0, 1, "40", later); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	cell, _ = table.Cell(0, 1)
	if !cell.IsModified() || cell.IsEditedFromBaseline() {
		t.Fatalf("expected edited flag cleared on revert, got %#v", cell)
	}

	if err := table.SetValue(9, 0, "x", later); err != ErrInvalidRow {
		t.Fatalf("expected ErrInvalidRow, got %v", err)
	}
	if err := table.SetValue(0, 9, "x", later); err != ErrInvalidColumn {
		t.Fatalf("expected ErrInvalidColumn, got %v", err)
	}
}

func TestTableAppendRow(t *testing.T) {
	table, err := NewTable(unitsInput(), time.Now())
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if err := table.AppendRow([]string{"UNIT_SETTLER"}, time.Now()); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}
	if table.RowCount() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.RowCount())
	}
	for col := range table.Columns {
		cell, _ := table.Cell(2, col)
		if !cell.IsAdded() {
			t.Fatalf("expected added flag on column %d", col)
		}
	}
	if table.Rows[2][0].Value != "UNIT_SETTLER" || table.Rows[2][1].Value != "" {
		t.Fatalf("unexpected appended row %#v", table.Rows[2])
	}
	if err := table.AppendRow([]string{"a", "b", "c", "d"}, time.Now()); err != ErrInvalidRow {
		t.Fatalf("expected ErrInvalidRow, got %v", err)
	}
}

func TestCellTextAndTypedValue(t *testing.T) {
	cases := []struct {
		cell    Cell
		display string
		typed   any
	}{
		{cell: Cell{Value: "42", Kind: ColumnKindInteger}, display: "42", typed: int64(42)},
		{cell: Cell{Value: "4x", Kind: ColumnKindInteger}, display: "4x", typed: "4x"},
		{cell: Cell{Value: "1.50", Kind: ColumnKindFloat}, display: "1.5", typed: 1.5},
		{cell: Cell{Value: "1", Kind: ColumnKindBoolean}, display: "true", typed: true},
		{cell: Cell{Value: "nope", Kind: ColumnKindBoolean}, display: "false", typed: false},
		{cell: Cell{Value: "melee", Kind: ColumnKindText}, display: "melee", typed: "melee"},
	}
	for _, tc := range cases {
		if got := tc.cell.DisplayText(); got != tc.display {
			t.Fatalf("DisplayText(%q) = %q, want %q", tc.cell.Value, got, tc.display)
		}
		if got := tc.cell.TypedValue(); got != tc.typed {
			t.Fatalf("TypedValue(%q) = %#v, want %#v", tc.cell.Value, got, tc.typed)
		}
		if tc.cell.EditText() != tc.cell.Value {
			t.Fatalf("EditText(%q) should return the raw value", tc.cell.Value)
		}
	}

	lookup := Cell{Value: "3", Lookup: "MELEE", HasLookup: true}
	if text, ok := lookup.SecondaryText(); !ok || text != "MELEE" {
		t.Fatalf("SecondaryText() = %q, %t", text, ok)
	}
	if _, ok := (Cell{Value: "3"}).SecondaryText(); ok {
		t.Fatal("expected no secondary text without lookup")
	}
}

func TestParseKindsAndOrders(t *testing.T) {
	if kind, err := ParseColumnKind(" StringU8 "); err != nil || kind != ColumnKindText {
		t.Fatalf("ParseColumnKind() = %q, %v", kind, err)
	}
	if kind, err := ParseColumnKind("f32"); err != nil || kind != ColumnKindFloat {
		t.Fatalf("ParseColumnKind() = %q, %v", kind, err)
	}
	if _, err := ParseColumnKind("blob"); err != ErrInvalidColumn {
		t.Fatalf("expected ErrInvalidColumn, got %v", err)
	}

	if order, err := ParseSortOrder("DESC"); err != nil || order != SortDescending {
		t.Fatalf("ParseSortOrder() = %v, %v", order, err)
	}
	if order, err := ParseSortOrder(""); err != nil || order != SortAscending {
		t.Fatalf("ParseSortOrder() = %v, %v", order, err)
	}
	if _, err := ParseSortOrder("sideways"); err != ErrInvalidSortOrder {
		t.Fatalf("expected ErrInvalidSortOrder, got %v", err)
	}
	if SortAscending.Toggle() != SortDescending || SortDescending.Toggle() != SortAscending {
		t.Fatal("expected Toggle() to flip order")
	}
	if SortDescending.String() != "desc" || SortAscending.String() != "asc" {
		t.Fatal("unexpected SortOrder.String()")
	}
}

func TestTextSourceParseAndCycle(t *testing.T) {
	cases := map[string]TextSource{
		"":          TextSourcePrimary,
		"source":    TextSourcePrimary,
		" Lookup ":  TextSourceSecondary,
		"secondary": TextSourceSecondary,
		"BOTH":      TextSourceBoth,
	}
	for raw, want := range cases {
		got, err := ParseTextSource(raw)
		if err != nil || got != want {
			t.Fatalf("ParseTextSource(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseTextSource("everything"); err != ErrInvalidTextSource {
		t.Fatalf("expected ErrInvalidTextSource, got %v", err)
	}

	if TextSourcePrimary.Next() != TextSourceSecondary || TextSourceSecondary.Next() != TextSourceBoth || TextSourceBoth.Next() != TextSourcePrimary {
		t.Fatal("unexpected text source cycle")
	}
	if TextSource("bogus").Next() != TextSourcePrimary {
		t.Fatal("expected unknown source to restart the cycle")
	}
	if (MatchRule{TextSource: "bogus"}).Source() != TextSourcePrimary {
		t.Fatal("expected unknown rule source to fall back to primary")
	}
}

func TestFilterConfigurationGroups(t *testing.T) {
	cfg := FilterConfiguration{
		{Column: 0, Pattern: "a", GroupID: 2},
		{Column: 1, Pattern: "", GroupID: 0},
		{Column: 2, Pattern: "c", GroupID: 2},
		{Column: 3, Pattern: "d", GroupID: 1},
	}
	groups := cfg.Groups()
	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	if !slices.Equal(ids, []int{0, 1, 2}) {
		t.Fatalf("expected ascending group ids, got %v", ids)
	}
	if len(groups[2].Rules) != 2 || groups[2].Rules[0].Column != 0 || groups[2].Rules[1].Column != 2 {
		t.Fatalf("expected configuration order inside group, got %#v", groups[2].Rules)
	}

	populated := cfg.Populated()
	if len(populated) != 3 {
		t.Fatalf("expected 3 populated rules, got %d", len(populated))
	}
	for _, rule := range populated {
		if rule.IsEmpty() {
			t.Fatalf("unexpected empty rule %#v", rule)
		}
	}

	clone := cfg.Clone()
	clone[0].Pattern = "changed"
	if cfg[0].Pattern != "a" {
		t.Fatal("expected Clone() to be independent")
	}
	if FilterConfiguration(nil).Clone() != nil {
		t.Fatal("expected nil clone of nil configuration")
	}
}

func TestFrozenSetOrderAndToggle(t *testing.T) {
	set := NewFrozenSet(3, -1, 3, 1)
	if !slices.Equal(set.Columns(), []int{3, 1}) {
		t.Fatalf("unexpected initial columns %v", set.Columns())
	}
	if !set.Toggle(0) {
		t.Fatal("expected Toggle(0) to freeze")
	}
	if set.Toggle(3) {
		t.Fatal("expected Toggle(3) to unfreeze")
	}
	if !slices.Equal(set.Columns(), []int{1, 0}) {
		t.Fatalf("expected freeze order preserved, got %v", set.Columns())
	}
	cols := set.Columns()
	cols[0] = 99
	if set.Contains(99) {
		t.Fatal("expected Columns() to return a copy")
	}
	if set.Len() != 2 || !set.Contains(0) {
		t.Fatalf("unexpected set state %v", set.Columns())
	}
	set.Reset()
	if set.Len() != 0 {
		t.Fatalf("expected empty set after Reset, got %v", set.Columns())
	}
}

func TestNewTableState(t *testing.T) {
	state := NewTableState("t1")
	if state.TableID != "t1" || state.SortColumn != -1 || len(state.Rules) != 0 {
		t.Fatalf("unexpected default state %#v", state)
	}
}
