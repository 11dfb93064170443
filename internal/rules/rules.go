// Package rules maps transaction descriptions to budget categories.
//
// Two layers of rules exist: learned merchant rules, refined over time from
// manual corrections, and the built-in keyword rules. Learned rules always
// win. Matching is uppercase substring containment, which is intentionally
// permissive: a short merchant key can match an unrelated description, an
// accepted tradeoff inherited from the rule data itself.
package rules

import (
	"sort"
	"strings"
)

// RuleSet holds keyword and learned categorization rules. Keys are matched
// as uppercase substrings of the transaction description.
type RuleSet struct {
	Keyword map[string]string `json:"keyword_rules"`
	Learned map[string]string `json:"learned_rules"`
}

// Default returns the seed rule set used when no persisted rules exist yet.
func Default() RuleSet {
	return RuleSet{
		Keyword: map[string]string{
			"WHOLE FOODS": "Necessities",
			"TRADER JOE":  "Necessities",
			"WALMART":     "Necessities",
			"TARGET":      "Necessities",
			"STARBUCKS":   "Discretionary",
			"CHIPOTLE":    "Discretionary",
			"SHELL":       "Necessities",
			"CHEVRON":     "Necessities",
			"UBER":        "Necessities",
			"NETFLIX":     "Discretionary",
			"AMAZON":      "Discretionary",
		},
		Learned: map[string]string{},
	}
}

// Categorize resolves a description to a category. Learned rules are checked
// before keyword rules; within each layer keys are walked in sorted order so
// repeated runs over the same state resolve identically. Returns false when
// no rule matches.
func (rs RuleSet) Categorize(description string) (string, bool) {
	upper := strings.ToUpper(description)
	if cat, ok := match(rs.Learned, upper); ok {
		return cat, true
	}
	return match(rs.Keyword, upper)
}

// Learn records a merchant-to-category rule, overriding any previous learned
// rule for the same merchant.
func (rs *RuleSet) Learn(merchant, category string) {
	if rs.Learned == nil {
		rs.Learned = map[string]string{}
	}
	rs.Learned[strings.TrimSpace(merchant)] = category
}

// Clone returns an independent copy of the rule set.
func (rs RuleSet) Clone() RuleSet {
	out := RuleSet{
		Keyword: make(map[string]string, len(rs.Keyword)),
		Learned: make(map[string]string, len(rs.Learned)),
	}
	for k, v := range rs.Keyword {
		out.Keyword[k] = v
	}
	for k, v := range rs.Learned {
		out.Learned[k] = v
	}
	return out
}

func match(m map[string]string, upperDesc string) (string, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(upperDesc, strings.ToUpper(k)) {
			return m[k], true
		}
	}
	return "", false
}
