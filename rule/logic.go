package rules

import (
	"fmt"
	"regexp"
	"strings"

	C "github.com/windrose-proxy/windrose/constant"
)

type Logic struct {
	payload  string
	adapter  string
	ruleType C.RuleType
	rules    []C.Rule
	needIP   bool
}

func NewNOT(payload string, adapter string) (*Logic, error) {
	logic := &Logic{payload: payload, adapter: adapter, ruleType: C.NOT}
	err := logic.parsePayload(payload)
	if err != nil {
		return nil, err
	}

	if len(logic.rules) != 1 {
		return nil, fmt.Errorf("not rule must contain one rule")
	}
	logic.needIP = logic.rules[0].ShouldResolveIP()
	return logic, nil
}

func NewOR(payload string, adapter string) (*Logic, error) {
	logic := &Logic{payload: payload, adapter: adapter, ruleType: C.OR}
	err := logic.parsePayload(payload)
	if err != nil {
		return nil, err
	}

	for _, rule := range logic.rules {
		if rule.ShouldResolveIP() {
			logic.needIP = true
			break
		}
	}

	return logic, nil
}

func NewAND(payload string, adapter string) (*Logic, error) {
	logic := &Logic{payload: payload, adapter: adapter, ruleType: C.AND}
	err := logic.parsePayload(payload)
	if err != nil {
		return nil, err
	}

	for _, rule := range logic.rules {
		if rule.ShouldResolveIP() {
			logic.needIP = true
			break
		}
	}

	return logic, nil
}

func (logic *Logic) payloadToRule(subPayload string) (C.Rule, error) {
	splitStr := strings.SplitN(subPayload, ",", 2)
	if len(splitStr) < 2 {
		return nil, fmt.Errorf("[%s] format is error", subPayload)
	}

	tp := splitStr[0]
	payload := splitStr[1]
	switch tp {
	case "NOT", "OR", "AND":
		return ParseRule(tp, payload, "", nil, nil)
	case "MATCH", "RULE-SET":
		return nil, fmt.Errorf("unsupported rule type [%s] in logic rule", tp)
	}

	param := strings.Split(payload, ",")
	return ParseRule(tp, param[0], "", param[1:], nil)
}

var logicPayloadRegex = regexp.MustCompile(`\(.*\)`)

func (logic *Logic) parsePayload(payload string) error {
	type Range struct {
		start int
		end   int
		index int
	}

	if !logicPayloadRegex.MatchString(payload) {
		return fmt.Errorf("payload format error")
	}

	stack := make([]Range, 0, 4)
	num := 0
	subRanges := make([]Range, 0)
	for i, c := range payload {
		if c == '(' {
			sr := Range{
				start: i,
				index: num,
			}

			num++
			stack = append(stack, sr)
		} else if c == ')' {
			if len(stack) == 0 {
				return fmt.Errorf("format error is missing (")
			}
			sr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			sr.end = i
			subRanges = append(subRanges, sr)
		}
	}

	if len(stack) != 0 {
		return fmt.Errorf("format error is missing )")
	}

	sortResult := make([]Range, len(subRanges))
	for _, sr := range subRanges {
		sortResult[sr.index] = sr
	}
	subRanges = sortResult

	rules := make([]C.Rule, 0, len(subRanges))

	// keep only top level parenthesis groups, they are the sub-rules
	lastEnd := -1
	for _, sr := range subRanges {
		if sr.start < lastEnd {
			continue
		}
		lastEnd = sr.end

		subPayload := payload[sr.start+1 : sr.end]
		rule, err := logic.payloadToRule(subPayload)
		if err != nil {
			return err
		}

		rules = append(rules, rule)
	}

	if len(rules) < 1 {
		return fmt.Errorf("the parsed rule is empty")
	}

	logic.rules = rules

	return nil
}

func (logic *Logic) RuleType() C.RuleType {
	return logic.ruleType
}

// Match evaluates sub-rules and fails closed: a sub-rule that needs a
// resolved destination IP while the session has none makes the whole
// logic rule not match.
func (logic *Logic) Match(metadata *C.Metadata) (bool, string) {
	for _, rule := range logic.rules {
		if rule.ShouldResolveIP() && !metadata.Resolved() {
			return false, ""
		}
	}

	switch logic.ruleType {
	case C.NOT:
		m, _ := logic.rules[0].Match(metadata)
		return !m, logic.adapter
	case C.OR:
		for _, rule := range logic.rules {
			if m, _ := rule.Match(metadata); m {
				return true, logic.adapter
			}
		}
		return false, ""
	case C.AND:
		for _, rule := range logic.rules {
			if m, _ := rule.Match(metadata); !m {
				return false, ""
			}
		}
		return true, logic.adapter
	}

	return false, ""
}

func (logic *Logic) Adapter() string {
	return logic.adapter
}

func (logic *Logic) Payload() string {
	return logic.payload
}

func (logic *Logic) ShouldResolveIP() bool {
	return logic.needIP
}

func (logic *Logic) ShouldFindProcess() bool {
	for _, rule := range logic.rules {
		if rule.ShouldFindProcess() {
			return true
		}
	}
	return false
}

var _ C.Rule = (*Logic)(nil)
