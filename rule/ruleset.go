package rules

import (
	"fmt"

	C "github.com/windrose-proxy/windrose/constant"
)

// RuleSet references a named list of rules resolved at load time, so a
// missing set is a config error rather than a runtime surprise.
type RuleSet struct {
	name    string
	adapter string
	rules   []C.Rule
}

func (rs *RuleSet) RuleType() C.RuleType {
	return C.RuleSet
}

func (rs *RuleSet) Match(metadata *C.Metadata) (bool, string) {
	for _, rule := range rs.rules {
		if m, _ := rule.Match(metadata); m {
			return true, rs.adapter
		}
	}
	return false, ""
}

func (rs *RuleSet) Adapter() string {
	return rs.adapter
}

func (rs *RuleSet) Payload() string {
	return rs.name
}

func (rs *RuleSet) ShouldResolveIP() bool {
	for _, rule := range rs.rules {
		if rule.ShouldResolveIP() {
			return true
		}
	}
	return false
}

func (rs *RuleSet) ShouldFindProcess() bool {
	for _, rule := range rs.rules {
		if rule.ShouldFindProcess() {
			return true
		}
	}
	return false
}

func NewRuleSet(name string, adapter string, ruleSets map[string][]C.Rule) (*RuleSet, error) {
	rules, ok := ruleSets[name]
	if !ok {
		return nil, fmt.Errorf("rule set %s not found", name)
	}

	return &RuleSet{
		name:    name,
		adapter: adapter,
		rules:   rules,
	}, nil
}

var _ C.Rule = (*RuleSet)(nil)
