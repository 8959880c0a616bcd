package accesslog

import (
	"fmt"
	"regexp"
)

// DebugRule is a conjunction of flat-field-name/pattern pairs. A rule
// matches an event when every pattern matches the corresponding flat field.
type DebugRule map[string]*regexp.Regexp

// CompileRules compiles raw field→pattern rule mappings at startup.
// Patterns are anchored at the start of the field value but may match a
// prefix of it, so "^/health" in config terms matches "/health/live".
// An unparsable pattern is a configuration error; callers should fail fast
// before serving traffic.
func CompileRules(raw []map[string]string) ([]DebugRule, error) {
	rules := make([]DebugRule, 0, len(raw))
	for i, entry := range raw {
		rule := make(DebugRule, len(entry))
		for field, pattern := range entry {
			re, err := regexp.Compile(`\A(?:` + pattern + `)`)
			if err != nil {
				return nil, fmt.Errorf("debug rule %d, field %q: invalid pattern %q: %w", i, field, pattern, err)
			}
			rule[field] = re
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ClassifyAsDebug reports whether the event should be force-classified at
// debug severity: true iff some rule's every field-pattern pair matches.
// A rule fails as soon as a named field is absent or a pattern does not
// match the field's string value.
func ClassifyAsDebug(flat FlatRecord, rules []DebugRule) bool {
	for _, rule := range rules {
		matches := true
		for field, re := range rule {
			val, ok := flat[field]
			if !ok || !re.MatchString(scalarString(val)) {
				matches = false
				break
			}
		}
		if matches {
			return true
		}
	}
	return false
}
