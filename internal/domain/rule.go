package domain

import (
	"slices"
	"strings"
)

// TextSource selects which cell text representations a rule is matched against.
type TextSource string

// TextSourcePrimary and related constants define the supported text sources.
const (
	TextSourcePrimary   TextSource = "primary"
	TextSourceSecondary TextSource = "secondary"
	TextSourceBoth      TextSource = "both"
)

// textSourceOrder stores the cycle order used by selectors.
var textSourceOrder = []TextSource{TextSourcePrimary, TextSourceSecondary, TextSourceBoth}

// ParseTextSource normalizes raw input into a TextSource.
func ParseTextSource(raw string) (TextSource, error) {
	switch TextSource(strings.TrimSpace(strings.ToLower(raw))) {
	case "", TextSourcePrimary, "source", "value":
		return TextSourcePrimary, nil
	case TextSourceSecondary, "lookup":
		return TextSourceSecondary, nil
	case TextSourceBoth:
		return TextSourceBoth, nil
	default:
		return "", ErrInvalidTextSource
	}
}

// Next returns the source that follows s in selector order.
func (s TextSource) Next() TextSource {
	idx := slices.Index(textSourceOrder, s)
	if idx < 0 {
		return TextSourcePrimary
	}
	return textSourceOrder[(idx+1)%len(textSourceOrder)]
}

// MatchRule is one populated filter slot. Several rules may target the same column.
type MatchRule struct {
	Column                   int        `json:"column"`
	Pattern                  string     `json:"pattern"`
	Negate                   bool       `json:"negate,omitempty"`
	UseRegex                 bool       `json:"use_regex,omitempty"`
	CaseSensitive            bool       `json:"case_sensitive,omitempty"`
	PassIfBlank              bool       `json:"pass_if_blank,omitempty"`
	PassIfEditedFromBaseline bool       `json:"pass_if_edited,omitempty"`
	TextSource               TextSource `json:"text_source,omitempty"`
	GroupID                  int        `json:"group"`
}

// IsEmpty reports whether the rule carries no constraint.
func (r MatchRule) IsEmpty() bool {
	return r.Pattern == ""
}

// Source returns the rule text source, defaulting to the primary text.
func (r MatchRule) Source() TextSource {
	switch r.TextSource {
	case TextSourceSecondary, TextSourceBoth:
		return r.TextSource
	default:
		return TextSourcePrimary
	}
}

// FilterConfiguration is the ordered rule list applied to a table.
type FilterConfiguration []MatchRule

// RuleGroup holds the rules sharing one group id, in configuration order.
type RuleGroup struct {
	ID    int
	Rules []MatchRule
}

// Clone returns an independent copy of the configuration.
func (c FilterConfiguration) Clone() FilterConfiguration {
	if c == nil {
		return nil
	}
	return append(FilterConfiguration(nil), c...)
}

// Groups partitions the rules by group id, ordered by ascending id.
func (c FilterConfiguration) Groups() []RuleGroup {
	byID := map[int]int{}
	groups := make([]RuleGroup, 0, 4)
	for _, rule := range c {
		idx, ok := byID[rule.GroupID]
		if !ok {
			idx = len(groups)
			byID[rule.GroupID] = idx
			groups = append(groups, RuleGroup{ID: rule.GroupID})
		}
		groups[idx].Rules = append(groups[idx].Rules, rule)
	}
	slices.SortStableFunc(groups, func(a, b RuleGroup) int {
		return a.ID - b.ID
	})
	return groups
}

// Populated returns only the rules with a non-empty pattern.
func (c FilterConfiguration) Populated() FilterConfiguration {
	out := make(FilterConfiguration, 0, len(c))
	for _, rule := range c {
		if !rule.IsEmpty() {
			out = append(out, rule)
		}
	}
	return out
}
