package ratelimit

import (
	"strings"
)

// MatchRule returns the rule for a request path and method, or nil when none applies.
// Exact matches win over prefix matches.
func MatchRule(path string, method string, rules []Rule) *Rule {
	for i := range rules {
		if rules[i].Path == path && rules[i].Method == method {
			return &rules[i]
		}
	}

	for i := range rules {
		rule := &rules[i]
		if rule.Method == method && strings.HasSuffix(rule.Path, "/") && strings.HasPrefix(path, rule.Path) {
			return rule
		}
	}

	return nil
}
