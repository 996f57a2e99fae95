package rules

import (
	"errors"
	"fmt"

	C "github.com/windrose-proxy/windrose/constant"
)

var errPayload = errors.New("payload invalid")

func HasNoResolve(params []string) bool {
	for _, p := range params {
		if p == "no-resolve" {
			return true
		}
	}
	return false
}

func ParseRule(tp, payload, target string, params []string, ruleSets map[string][]C.Rule) (C.Rule, error) {
	var (
		parseErr error
		parsed   C.Rule
	)

	switch tp {
	case "DOMAIN":
		parsed = NewDomain(payload, target)
	case "DOMAIN-SUFFIX":
		parsed = NewDomainSuffix(payload, target)
	case "DOMAIN-KEYWORD":
		parsed = NewDomainKeyword(payload, target)
	case "DOMAIN-REGEX":
		parsed, parseErr = NewDomainRegex(payload, target)
	case "GEOIP":
		noResolve := HasNoResolve(params)
		parsed = NewGEOIP(payload, target, noResolve)
	case "GEOSITE":
		parsed, parseErr = NewGEOSITE(payload, target)
	case "IP-CIDR", "IP-CIDR6":
		noResolve := HasNoResolve(params)
		parsed, parseErr = NewIPCIDR(payload, target, WithIPCIDRNoResolve(noResolve))
	case "SRC-IP-CIDR":
		parsed, parseErr = NewIPCIDR(payload, target, WithIPCIDRSourceIP(true), WithIPCIDRNoResolve(true))
	case "SRC-PORT":
		parsed, parseErr = NewPort(payload, target, C.SrcPort)
	case "DST-PORT":
		parsed, parseErr = NewPort(payload, target, C.DstPort)
	case "IN-NAME":
		parsed, parseErr = NewInName(payload, target)
	case "PROCESS-NAME":
		parsed, parseErr = NewProcess(payload, target)
	case "NETWORK":
		parsed, parseErr = NewNetwork(payload, target)
	case "RULE-SET":
		if target == "" {
			// don't allow RULE-SET inside NOT/AND/OR logic
			parseErr = fmt.Errorf("unsupported rule type %s", tp)
			break
		}
		parsed, parseErr = NewRuleSet(payload, target, ruleSets)
	case "NOT":
		parsed, parseErr = NewNOT(payload, target)
	case "AND":
		parsed, parseErr = NewAND(payload, target)
	case "OR":
		parsed, parseErr = NewOR(payload, target)
	case "MATCH":
		parsed = NewMatch(target)
	default:
		parseErr = fmt.Errorf("unsupported rule type %s", tp)
	}

	return parsed, parseErr
}
