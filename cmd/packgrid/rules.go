package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hylla/packgrid/internal/app"
	"github.com/hylla/packgrid/internal/domain"
)

// ruleDefaults holds the filter-command flags applied to every --rule.
type ruleDefaults struct {
	regex         bool
	caseSensitive bool
	passIfBlank   bool
	passIfEdited  bool
	source        string
}

// parseRuleSpec reads "[group:]column~pattern" or "[group:]column!~pattern" against table.
func parseRuleSpec(table domain.Table, raw string, defaults ruleDefaults) (domain.MatchRule, error) {
	expr := strings.TrimSpace(raw)
	rule := domain.MatchRule{
		UseRegex:                 defaults.regex,
		CaseSensitive:            defaults.caseSensitive,
		PassIfBlank:              defaults.passIfBlank,
		PassIfEditedFromBaseline: defaults.passIfEdited,
	}
	source, err := domain.ParseTextSource(defaults.source)
	if err != nil {
		return domain.MatchRule{}, fmt.Errorf("%w: source %q", app.ErrInvalidInput, defaults.source)
	}
	rule.TextSource = source

	if prefix, rest, ok := strings.Cut(expr, ":"); ok {
		if group, err := strconv.Atoi(prefix); err == nil {
			if group < 0 {
				return domain.MatchRule{}, fmt.Errorf("%w: negative group in rule %q", app.ErrInvalidInput, raw)
			}
			rule.GroupID = group
			expr = rest
		}
	}

	op := strings.Index(expr, "~")
	if op < 0 {
		return domain.MatchRule{}, fmt.Errorf("%w: rule %q needs column~pattern", app.ErrInvalidInput, raw)
	}
	column, pattern := expr[:op], expr[op+1:]
	if strings.HasSuffix(column, "!") {
		rule.Negate = true
		column = strings.TrimSuffix(column, "!")
	}
	col, err := app.ResolveColumn(table, column)
	if err != nil {
		return domain.MatchRule{}, err
	}
	rule.Column = col
	rule.Pattern = pattern
	return rule, nil
}
