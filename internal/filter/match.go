package filter

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/hylla/packgrid/internal/domain"
)

// compiledRule is a MatchRule prepared for repeated per-row evaluation.
type compiledRule struct {
	rule domain.MatchRule
	// re is nil for literal rules and for regex rules whose pattern did not compile.
	re *regexp2.Regexp
	// invalid marks a regex rule that degrades to no constraint.
	invalid bool
	// foldedPattern caches the lowercased literal pattern.
	foldedPattern string
}

// compileRule prepares one rule. Compile failures never surface as errors.
func compileRule(rule domain.MatchRule) (compiledRule, error) {
	out := compiledRule{rule: rule, foldedPattern: strings.ToLower(rule.Pattern)}
	if rule.IsEmpty() || !rule.UseRegex {
		return out, nil
	}
	opts := regexp2.None
	if !rule.CaseSensitive {
		opts |= regexp2.IgnoreCase
	}
	// The bare pattern is checked first so that an unbalanced pattern cannot turn into a
	// different, valid expression once wrapped.
	re, err := regexp2.Compile(rule.Pattern, opts)
	if err != nil {
		out.invalid = true
		return out, err
	}
	if rule.Negate {
		re, err = regexp2.Compile(negatedPattern(rule.Pattern), opts)
		if err != nil {
			out.invalid = true
			return out, err
		}
	}
	out.re = re
	return out, nil
}

// negatedPattern wraps pattern in a whole-string negative lookahead: it matches only when
// pattern matches nowhere in the subject.
func negatedPattern(pattern string) string {
	return `^(?![\s\S]*?(?:` + pattern + `))`
}

// satisfied evaluates the rule against one cell. A missing cell never fails a row.
func (r compiledRule) satisfied(cell domain.Cell, ok bool) bool {
	rule := r.rule
	if rule.IsEmpty() || !ok {
		return true
	}

	if cell.IsCheckable() {
		return r.checkboxSatisfied(cell)
	}
	if rule.PassIfBlank && cell.EditText() == "" {
		return true
	}
	if rule.PassIfEditedFromBaseline && cell.IsEditedFromBaseline() {
		return true
	}

	for _, text := range textsFor(cell, rule.Source()) {
		if !r.textSatisfied(text) {
			return false
		}
	}
	return true
}

// checkboxSatisfied interprets the pattern as a boolean literal.
func (r compiledRule) checkboxSatisfied(cell domain.Cell) bool {
	var expectChecked bool
	switch r.foldedPattern {
	case "true", "1":
		expectChecked = true
	case "false", "0":
		expectChecked = false
	default:
		return false
	}
	if r.rule.Negate {
		expectChecked = !expectChecked
	}
	return cell.IsChecked() == expectChecked
}

// textSatisfied applies the regex or literal test, negation included.
func (r compiledRule) textSatisfied(text string) bool {
	if r.rule.UseRegex {
		if r.invalid || r.re == nil {
			return true
		}
		matched, err := r.re.MatchString(text)
		if err != nil {
			return true
		}
		return matched
	}

	var contains bool
	if r.rule.CaseSensitive {
		contains = strings.Contains(text, r.rule.Pattern)
	} else {
		contains = strings.Contains(strings.ToLower(text), r.foldedPattern)
	}
	if r.rule.Negate {
		return !contains
	}
	return contains
}

// textsFor returns the cell representations selected by source. Cells without lookup
// text fall back to their primary text.
func textsFor(cell domain.Cell, source domain.TextSource) []string {
	primary := cell.EditText()
	secondary, hasSecondary := cell.SecondaryText()
	switch source {
	case domain.TextSourceSecondary:
		if hasSecondary {
			return []string{secondary}
		}
		return []string{primary}
	case domain.TextSourceBoth:
		if hasSecondary {
			return []string{primary, secondary}
		}
		return []string{primary}
	default:
		return []string{primary}
	}
}
