package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	"github.com/hylla/packgrid/internal/domain"
)

// maxFilterGroup bounds the group ids reachable from the filter bar.
const maxFilterGroup = 9

// filterRow is one editable rule in the filter bar.
type filterRow struct {
	rule  domain.MatchRule
	input textinput.Model
}

// newFilterRow builds an empty rule for column seeded from defaults.
func newFilterRow(column int, defaults FilterDefaults) filterRow {
	return newFilterRowFromRule(domain.MatchRule{
		Column:        column,
		UseRegex:      defaults.UseRegex,
		CaseSensitive: defaults.CaseSensitive,
		TextSource:    defaults.TextSource,
	})
}

// newFilterRowFromRule wraps a stored rule with a pattern input.
func newFilterRowFromRule(rule domain.MatchRule) filterRow {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "pattern"
	input.CharLimit = 200
	input.SetValue(rule.Pattern)
	input.CursorEnd()
	return filterRow{rule: rule, input: input}
}

// toRule returns the rule with the pattern currently typed.
func (r filterRow) toRule() domain.MatchRule {
	rule := r.rule
	rule.Pattern = r.input.Value()
	return rule
}

// flagsLabel renders the toggles of a rule in compact form.
func (r filterRow) flagsLabel() string {
	parts := make([]string, 0, 6)
	if r.rule.Negate {
		parts = append(parts, "not")
	}
	if r.rule.UseRegex {
		parts = append(parts, "re")
	}
	if r.rule.CaseSensitive {
		parts = append(parts, "Aa")
	}
	if r.rule.PassIfBlank {
		parts = append(parts, "blank")
	}
	if r.rule.PassIfEditedFromBaseline {
		parts = append(parts, "edited")
	}
	if src := r.rule.Source(); src != domain.TextSourcePrimary {
		parts = append(parts, string(src))
	}
	return strings.Join(parts, " ")
}

// filterRowsFromRules rebuilds filter bar rows from stored rules.
func filterRowsFromRules(rules domain.FilterConfiguration) []filterRow {
	rows := make([]filterRow, 0, len(rules))
	for _, rule := range rules {
		rows = append(rows, newFilterRowFromRule(rule))
	}
	return rows
}

// rulesFromRows collects the filter bar into a configuration, including rows with empty patterns.
func rulesFromRows(rows []filterRow) domain.FilterConfiguration {
	out := make(domain.FilterConfiguration, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRule())
	}
	return out
}

// renderFilterBar renders one line per rule. The focused row shows its live input when active.
func renderFilterBar(rows []filterRow, focus int, active bool, table *domain.Table, styles cellStyles) []string {
	if len(rows) == 0 {
		return nil
	}
	lines := make([]string, 0, len(rows))
	for idx, row := range rows {
		column := fmt.Sprintf("#%d", row.rule.Column)
		if table != nil && row.rule.Column >= 0 && row.rule.Column < len(table.Columns) {
			column = table.Columns[row.rule.Column].Name
		}
		marker := "  "
		if active && idx == focus {
			marker = styles.accent.Render("> ")
		}
		pattern := row.input.Value()
		if active && idx == focus {
			pattern = row.input.View()
		} else if pattern == "" {
			pattern = styles.muted.Render("(any)")
		}
		line := fmt.Sprintf("%sg%d %s ~ %s", marker, row.rule.GroupID, styles.header.Render(column), pattern)
		if flags := row.flagsLabel(); flags != "" {
			line += "  " + styles.muted.Render("["+flags+"]")
		}
		lines = append(lines, line)
	}
	return lines
}
