// Package security implements the content-safety filter applied to user text
// before any paid backend call is made.
//
// The filter is an ordered list of named, case-insensitive predicates covering
// known prompt-injection and script-injection techniques. Evaluation
// short-circuits on the first match, and the matching rule's name is exposed
// so callers can log what tripped without logging the input itself.
package security

import "regexp"

// Rule is a single named detection predicate.
type Rule struct {
	// Name identifies the rule in logs (e.g. "instruction_override").
	Name string
	// Pattern is the compiled case-insensitive expression.
	Pattern *regexp.Regexp
}

// defaultRules covers the injection techniques observed in abusive traffic.
// Order matters only for which name gets reported; every rule is a rejection.
var defaultRules = []Rule{
	{Name: "instruction_override", Pattern: regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`)},
	{Name: "system_prompt_probe", Pattern: regexp.MustCompile(`(?i)system\s+prompt`)},
	{Name: "jailbreak", Pattern: regexp.MustCompile(`(?i)jailbreak`)},
	{Name: "script_tag", Pattern: regexp.MustCompile(`(?i)<script`)},
	{Name: "javascript_uri", Pattern: regexp.MustCompile(`(?i)javascript:`)},
	{Name: "event_handler", Pattern: regexp.MustCompile(`(?i)on\w+\s*=`)},
}

// Filter evaluates text against an ordered rule list. The zero value is not
// usable; construct with NewFilter.
//
// Filter is immutable after construction and safe for concurrent use.
type Filter struct {
	rules []Rule
}

// NewFilter returns a Filter with the default rule set.
func NewFilter() *Filter {
	return &Filter{rules: defaultRules}
}

// NewFilterWithRules returns a Filter evaluating the given rules in order.
// Useful for tests and for deployments that extend the default set.
func NewFilterWithRules(rules []Rule) *Filter {
	return &Filter{rules: rules}
}

// IsMalicious reports whether text matches any rule, along with the name of
// the first matching rule. Rules are evaluated in order and evaluation stops
// at the first match. Empty text never matches.
func (f *Filter) IsMalicious(text string) (bool, string) {
	if text == "" {
		return false, ""
	}
	for _, r := range f.rules {
		if r.Pattern.MatchString(text) {
			return true, r.Name
		}
	}
	return false, ""
}
