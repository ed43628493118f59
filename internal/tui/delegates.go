package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/hylla/packgrid/internal/domain"
	"github.com/hylla/packgrid/internal/frozen"
	"github.com/mattn/go-runewidth"
)

// cellStyles holds the lipgloss styles shared by every cell delegate.
type cellStyles struct {
	plain    lipgloss.Style
	pinned   lipgloss.Style
	current  lipgloss.Style
	selected lipgloss.Style
	key      lipgloss.Style
	added    lipgloss.Style
	modified lipgloss.Style
	header   lipgloss.Style
	muted    lipgloss.Style
	accent   lipgloss.Style
}

// newCellStyles builds styles from configured colors.
func newCellStyles(colors ColorConfig) cellStyles {
	accent := lipgloss.Color(colors.Accent)
	muted := lipgloss.Color(colors.Muted)
	return cellStyles{
		plain:    lipgloss.NewStyle(),
		pinned:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		current:  lipgloss.NewStyle().Reverse(true).Bold(true),
		selected: lipgloss.NewStyle().Background(lipgloss.Color("237")),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Key)).Bold(true),
		added:    lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Added)),
		modified: lipgloss.NewStyle().Foreground(lipgloss.Color(colors.Modified)).Italic(true),
		header:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		muted:    lipgloss.NewStyle().Foreground(muted),
		accent:   lipgloss.NewStyle().Foreground(accent),
	}
}

// cellStyle picks the style for a cell. Cursor and selection win over cell flags.
func (s cellStyles) cellStyle(cell domain.Cell, state frozen.CellState, pane frozen.PaneKind) lipgloss.Style {
	switch {
	case state.Current && state.Focused:
		return s.current
	case state.Current:
		return s.current.Bold(false)
	case state.Selected:
		return s.selected
	case cell.IsEditedFromBaseline():
		return s.modified
	case cell.IsAdded():
		return s.added
	case cell.IsKey():
		return s.key
	case pane == frozen.PaneFrozen:
		return s.pinned
	default:
		return s.plain
	}
}

// textDelegate renders the display text plus any lookup label.
type textDelegate struct {
	styles cellStyles
	pane   frozen.PaneKind
}

// Render implements frozen.Delegate.
func (d textDelegate) Render(cell domain.Cell, width int, state frozen.CellState) string {
	text := cell.DisplayText()
	if lookup, ok := cell.SecondaryText(); ok && lookup != "" {
		text += " (" + lookup + ")"
	}
	return d.styles.cellStyle(cell, state, d.pane).Render(fitCell(text, width))
}

// checkboxDelegate renders boolean cells as a checkbox.
type checkboxDelegate struct {
	styles cellStyles
	pane   frozen.PaneKind
}

// Render implements frozen.Delegate.
func (d checkboxDelegate) Render(cell domain.Cell, width int, state frozen.CellState) string {
	box := "[ ]"
	if cell.IsChecked() {
		box = "[x]"
	}
	return d.styles.cellStyle(cell, state, d.pane).Render(fitCell(box, width))
}

// columnDelegate returns the delegate factory registered for one column definition.
func columnDelegate(def domain.ColumnDef, styles cellStyles) frozen.DelegateFactory {
	return func(kind frozen.PaneKind) frozen.Delegate {
		if def.Kind == domain.ColumnKindBoolean {
			return checkboxDelegate{styles: styles, pane: kind}
		}
		return textDelegate{styles: styles, pane: kind}
	}
}

// fitCell truncates or pads text to width cells, leaving one trailing separator column.
func fitCell(text string, width int) string {
	if width <= 0 {
		return ""
	}
	text = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(text)
	if width == 1 {
		return " "
	}
	inner := width - 1
	return runewidth.FillRight(runewidth.Truncate(text, inner, "…"), inner) + " "
}
