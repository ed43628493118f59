package domain

import "slices"

// FrozenSet holds the pinned column indices in the order they were frozen.
type FrozenSet struct {
	columns []int
}

// NewFrozenSet builds a set from columns in freeze order, dropping duplicates and negatives.
func NewFrozenSet(columns ...int) FrozenSet {
	var s FrozenSet
	for _, col := range columns {
		if col < 0 || s.Contains(col) {
			continue
		}
		s.columns = append(s.columns, col)
	}
	return s
}

// Toggle freezes col when absent and unfreezes it when present. It reports the new state.
func (s *FrozenSet) Toggle(col int) bool {
	if idx := slices.Index(s.columns, col); idx >= 0 {
		s.columns = slices.Delete(s.columns, idx, idx+1)
		return false
	}
	s.columns = append(s.columns, col)
	return true
}

// Contains reports whether col is frozen.
func (s FrozenSet) Contains(col int) bool {
	return slices.Contains(s.columns, col)
}

// Columns returns a copy of the frozen columns in freeze order.
func (s FrozenSet) Columns() []int {
	return slices.Clone(s.columns)
}

// Len returns the number of frozen columns.
func (s FrozenSet) Len() int {
	return len(s.columns)
}

// Reset unfreezes every column.
func (s *FrozenSet) Reset() {
	s.columns = nil
}
