package filter

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/hylla/packgrid/internal/domain"
)

// compareCells orders two cells. Checkbox pairs put checked first; everything else uses the
// typed natural order, with a missing cell ordered before a present one.
func compareCells(a domain.Cell, okA bool, b domain.Cell, okB bool) int {
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}

	if a.IsCheckable() && b.IsCheckable() {
		checkedA, checkedB := a.IsChecked(), b.IsChecked()
		switch {
		case checkedA == checkedB:
			return 0
		case checkedA:
			return -1
		default:
			return 1
		}
	}
	return compareTyped(a.TypedValue(), b.TypedValue())
}

// compareTyped compares values of matching kinds natively and falls back to text otherwise.
func compareTyped(a, b any) int {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return cmp.Compare(av, bv)
		case float64:
			return cmp.Compare(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return cmp.Compare(av, bv)
		case int64:
			return cmp.Compare(av, float64(bv))
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return compareBool(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	}
	return strings.Compare(textOf(a), textOf(b))
}

// compareBool orders false before true.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// textOf renders a typed value for the mixed-kind fallback.
func textOf(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case bool:
		if tv {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(tv, 10)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	default:
		return ""
	}
}
