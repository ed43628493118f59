package domain

import (
	"strconv"
	"strings"
)

// ColumnKind describes the typed value stored in a column.
type ColumnKind string

// ColumnKindText and related constants define supported column kinds.
const (
	ColumnKindText    ColumnKind = "text"
	ColumnKindInteger ColumnKind = "integer"
	ColumnKindFloat   ColumnKind = "float"
	ColumnKindBoolean ColumnKind = "boolean"
)

// ParseColumnKind normalizes raw input into a ColumnKind.
func ParseColumnKind(raw string) (ColumnKind, error) {
	switch ColumnKind(strings.TrimSpace(strings.ToLower(raw))) {
	case "", ColumnKindText, "string", "stringu8", "stringu16":
		return ColumnKindText, nil
	case ColumnKindInteger, "int", "i32", "i64":
		return ColumnKindInteger, nil
	case ColumnKindFloat, "f32", "f64":
		return ColumnKindFloat, nil
	case ColumnKindBoolean, "bool":
		return ColumnKindBoolean, nil
	default:
		return "", ErrInvalidColumn
	}
}

// CellFlags carries the per-cell state markers.
type CellFlags uint8

// FlagKey and related constants define cell flags.
const (
	FlagKey CellFlags = 1 << iota
	FlagAdded
	FlagModified
	FlagEditedFromBaseline
)

// Has reports whether every bit in f is set.
func (c CellFlags) Has(f CellFlags) bool {
	return c&f == f
}

// Cell is one table value together with its lookup text and flags.
type Cell struct {
	Value     string     `json:"v"`
	Baseline  string     `json:"b,omitempty"`
	Lookup    string     `json:"l,omitempty"`
	HasLookup bool       `json:"hl,omitempty"`
	Kind      ColumnKind `json:"-"`
	Flags     CellFlags  `json:"f,omitempty"`
}

// DisplayText returns the rendered text of the cell.
func (c Cell) DisplayText() string {
	switch c.Kind {
	case ColumnKindFloat:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case ColumnKindBoolean:
		if c.IsChecked() {
			return "true"
		}
		return "false"
	}
	return c.Value
}

// EditText returns the raw value, which is the primary text used for matching.
func (c Cell) EditText() string {
	return c.Value
}

// SecondaryText returns the lookup label when one exists.
func (c Cell) SecondaryText() (string, bool) {
	return c.Lookup, c.HasLookup
}

// IsCheckable reports whether the cell exposes checkbox semantics.
func (c Cell) IsCheckable() bool {
	return c.Kind == ColumnKindBoolean
}

// IsChecked reports the checkbox state of a boolean cell.
func (c Cell) IsChecked() bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Value))
	return err == nil && v
}

// IsKey reports whether the cell belongs to a key column.
func (c Cell) IsKey() bool { return c.Flags.Has(FlagKey) }

// IsAdded reports whether the cell belongs to an appended row.
func (c Cell) IsAdded() bool { return c.Flags.Has(FlagAdded) }

// IsModified reports whether the cell was edited in this session or a previous one.
func (c Cell) IsModified() bool { return c.Flags.Has(FlagModified) }

// IsEditedFromBaseline reports whether the value differs from its baseline.
func (c Cell) IsEditedFromBaseline() bool { return c.Flags.Has(FlagEditedFromBaseline) }

// TypedValue returns the cell value converted to its column kind.
func (c Cell) TypedValue() any {
	raw := strings.TrimSpace(c.Value)
	switch c.Kind {
	case ColumnKindInteger:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	case ColumnKindFloat:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case ColumnKindBoolean:
		return c.IsChecked()
	}
	return c.Value
}

// SortOrder selects ascending or descending ordering.
type SortOrder int

// SortAscending and related constants define sort orders.
const (
	SortAscending SortOrder = iota
	SortDescending
)

// Toggle returns the opposite order.
func (o SortOrder) Toggle() SortOrder {
	if o == SortAscending {
		return SortDescending
	}
	return SortAscending
}

// String renders the order for logs and persisted state.
func (o SortOrder) String() string {
	if o == SortDescending {
		return "desc"
	}
	return "asc"
}

// ParseSortOrder normalizes raw input into a SortOrder.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	default:
		return SortAscending, ErrInvalidSortOrder
	}
}
