package rules

import (
	"net/netip"
	"testing"

	C "github.com/windrose-proxy/windrose/constant"

	"github.com/stretchr/testify/assert"
)

func TestParseRule(t *testing.T) {
	rule, err := ParseRule("DOMAIN", "example.com", "DIRECT", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, C.Domain, rule.RuleType())
	assert.Equal(t, "example.com", rule.Payload())
	assert.Equal(t, "DIRECT", rule.Adapter())

	rule, err = ParseRule("IP-CIDR", "127.0.0.0/8", "DIRECT", []string{"no-resolve"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, C.IPCIDR, rule.RuleType())
	assert.False(t, rule.ShouldResolveIP())

	_, err = ParseRule("UNSUPPORTED", "payload", "DIRECT", nil, nil)
	assert.Error(t, err)

	_, err = ParseRule("IP-CIDR", "not-a-cidr", "DIRECT", nil, nil)
	assert.ErrorIs(t, err, errPayload)
}

func TestParseRuleSet(t *testing.T) {
	inner, err := ParseRule("DOMAIN-SUFFIX", "example.com", "", nil, nil)
	assert.NoError(t, err)
	ruleSets := map[string][]C.Rule{
		"local": {inner},
	}

	rule, err := ParseRule("RULE-SET", "local", "DIRECT", nil, ruleSets)
	assert.NoError(t, err)
	assert.Equal(t, C.RuleSet, rule.RuleType())

	matched, adapter := rule.Match(&C.Metadata{Host: "www.example.com"})
	assert.True(t, matched)
	assert.Equal(t, "DIRECT", adapter)

	matched, _ = rule.Match(&C.Metadata{Host: "example.org"})
	assert.False(t, matched)

	_, err = ParseRule("RULE-SET", "missing", "DIRECT", nil, ruleSets)
	assert.Error(t, err)

	// RULE-SET can not nest inside logic rules
	_, err = ParseRule("NOT", "((RULE-SET,local))", "DIRECT", nil, ruleSets)
	assert.Error(t, err)
}

func TestDomainRules(t *testing.T) {
	suffix := NewDomainSuffix("example.com", "DIRECT")

	matched, _ := suffix.Match(&C.Metadata{Host: "www.example.com"})
	assert.True(t, matched)

	matched, _ = suffix.Match(&C.Metadata{Host: "example.com"})
	assert.True(t, matched)

	matched, _ = suffix.Match(&C.Metadata{Host: "badexample.com"})
	assert.False(t, matched)

	keyword := NewDomainKeyword("google", "DIRECT")
	matched, _ = keyword.Match(&C.Metadata{Host: "www.google.com"})
	assert.True(t, matched)

	matched, _ = keyword.Match(&C.Metadata{Host: "example.com"})
	assert.False(t, matched)

	regex, err := NewDomainRegex(`^api\..*\.dev$`, "DIRECT")
	assert.NoError(t, err)
	matched, _ = regex.Match(&C.Metadata{Host: "api.foo.dev"})
	assert.True(t, matched)

	matched, _ = regex.Match(&C.Metadata{Host: "web.foo.dev"})
	assert.False(t, matched)

	_, err = NewDomainRegex(`(unclosed`, "DIRECT")
	assert.Error(t, err)
}

func TestPortRule(t *testing.T) {
	single, err := NewPort("443", "DIRECT", C.DstPort)
	assert.NoError(t, err)

	matched, _ := single.Match(&C.Metadata{DstPort: 443})
	assert.True(t, matched)

	matched, _ = single.Match(&C.Metadata{DstPort: 80})
	assert.False(t, matched)

	ranged, err := NewPort("1000-2000", "DIRECT", C.SrcPort)
	assert.NoError(t, err)

	matched, _ = ranged.Match(&C.Metadata{SrcPort: 1500})
	assert.True(t, matched)

	matched, _ = ranged.Match(&C.Metadata{SrcPort: 2001})
	assert.False(t, matched)

	_, err = NewPort("2000-1000", "DIRECT", C.DstPort)
	assert.ErrorIs(t, err, errPayload)

	_, err = NewPort("70000", "DIRECT", C.DstPort)
	assert.ErrorIs(t, err, errPayload)
}

func TestIPCIDRRule(t *testing.T) {
	rule, err := NewIPCIDR("192.168.0.0/16", "DIRECT")
	assert.NoError(t, err)

	matched, _ := rule.Match(&C.Metadata{DstIP: netip.MustParseAddr("192.168.1.1")})
	assert.True(t, matched)

	matched, _ = rule.Match(&C.Metadata{DstIP: netip.MustParseAddr("10.0.0.1")})
	assert.False(t, matched)

	matched, _ = rule.Match(&C.Metadata{Host: "example.com"})
	assert.False(t, matched)

	src, err := NewIPCIDR("10.0.0.0/8", "DIRECT", WithIPCIDRSourceIP(true), WithIPCIDRNoResolve(true))
	assert.NoError(t, err)
	assert.False(t, src.ShouldResolveIP())

	matched, _ = src.Match(&C.Metadata{SrcIP: netip.MustParseAddr("10.1.2.3")})
	assert.True(t, matched)
}

func TestNetworkRule(t *testing.T) {
	rule, err := NewNetwork("udp", "DIRECT")
	assert.NoError(t, err)

	matched, _ := rule.Match(&C.Metadata{NetWork: C.UDP})
	assert.True(t, matched)

	matched, _ = rule.Match(&C.Metadata{NetWork: C.TCP})
	assert.False(t, matched)

	_, err = NewNetwork("icmp", "DIRECT")
	assert.Error(t, err)
}

func TestInNameRule(t *testing.T) {
	rule, err := NewInName("DEFAULT-SOCKS/DEFAULT-MIXED", "DIRECT")
	assert.NoError(t, err)

	matched, _ := rule.Match(&C.Metadata{InName: "DEFAULT-SOCKS"})
	assert.True(t, matched)

	matched, _ = rule.Match(&C.Metadata{InName: "DEFAULT-HTTP"})
	assert.False(t, matched)
}

func TestMatchRule(t *testing.T) {
	rule := NewMatch("DIRECT")
	matched, adapter := rule.Match(&C.Metadata{})
	assert.True(t, matched)
	assert.Equal(t, "DIRECT", adapter)
}
