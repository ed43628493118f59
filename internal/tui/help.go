package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
)

// filterBarHelp documents the keys active while the filter bar has focus.
var filterBarHelp = [][2]string{
	{"tab / shift+tab", "next / previous rule"},
	{"alt+← / alt+→", "previous / next column"},
	{"ctrl+n / ctrl+k", "add / delete rule"},
	{"ctrl+x", "toggle negate"},
	{"ctrl+r", "toggle regex"},
	{"ctrl+t", "toggle case sensitivity"},
	{"ctrl+b", "toggle pass if blank"},
	{"ctrl+e", "toggle pass if edited"},
	{"ctrl+o", "cycle text source"},
	{"ctrl+g", "next group"},
	{"enter / esc", "apply and leave"},
}

// helpMarkdown builds the help overlay source from the active key map.
func helpMarkdown(k keyMap) string {
	var b strings.Builder
	b.WriteString("# packgrid\n\n")
	b.WriteString("Rules in the same group must all match. A row is shown when any group matches.\n\n")
	sections := []struct {
		title    string
		bindings []key.Binding
	}{
		{"Navigation", []key.Binding{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.pageUp, k.pageDown, k.home, k.end}},
		{"Columns", []key.Binding{k.freeze, k.unfreezeAll, k.sort, k.widen, k.narrow}},
		{"Rows and cells", []key.Binding{k.selectRow, k.copyRows, k.editCell}},
		{"Filters", []key.Binding{k.filter, k.addFilter, k.removeFilter}},
		{"Session", []key.Binding{k.saveState, k.reload, k.toggleHelp, k.quit}},
	}
	for _, section := range sections {
		b.WriteString("## " + section.title + "\n\n")
		b.WriteString("| key | action |\n|---|---|\n")
		for _, binding := range section.bindings {
			h := binding.Help()
			b.WriteString("| `" + h.Key + "` | " + h.Desc + " |\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("## Filter bar\n\n| key | action |\n|---|---|\n")
	for _, row := range filterBarHelp {
		b.WriteString("| `" + row[0] + "` | " + row[1] + " |\n")
	}
	return b.String()
}
