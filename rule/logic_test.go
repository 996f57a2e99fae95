package rules

import (
	"net/netip"
	"testing"

	C "github.com/windrose-proxy/windrose/constant"

	"github.com/stretchr/testify/assert"
)

func TestNOT(t *testing.T) {
	not, err := NewNOT("((DOMAIN,example.com))", "REJECT")
	assert.NoError(t, err)

	matched, adapter := not.Match(&C.Metadata{Host: "example.org"})
	assert.True(t, matched)
	assert.Equal(t, "REJECT", adapter)

	matched, _ = not.Match(&C.Metadata{Host: "example.com"})
	assert.False(t, matched)

	// exactly one sub-rule
	_, err = NewNOT("((DOMAIN,a.com),(DOMAIN,b.com))", "REJECT")
	assert.Error(t, err)

	_, err = NewNOT("(DOMAIN,a.com", "REJECT")
	assert.Error(t, err)
}

func TestOR(t *testing.T) {
	or, err := NewOR("((DOMAIN,example.com),(NETWORK,udp))", "DIRECT")
	assert.NoError(t, err)

	matched, _ := or.Match(&C.Metadata{Host: "example.com", NetWork: C.TCP})
	assert.True(t, matched)

	matched, _ = or.Match(&C.Metadata{Host: "example.org", NetWork: C.UDP})
	assert.True(t, matched)

	matched, _ = or.Match(&C.Metadata{Host: "example.org", NetWork: C.TCP})
	assert.False(t, matched)
}

func TestAND(t *testing.T) {
	and, err := NewAND("((DOMAIN-SUFFIX,example.com),(DST-PORT,443))", "DIRECT")
	assert.NoError(t, err)

	matched, _ := and.Match(&C.Metadata{Host: "www.example.com", DstPort: 443})
	assert.True(t, matched)

	matched, _ = and.Match(&C.Metadata{Host: "www.example.com", DstPort: 80})
	assert.False(t, matched)

	nested, err := NewAND("((NETWORK,tcp),(NOT,((DOMAIN,internal.example.com))))", "DIRECT")
	assert.NoError(t, err)

	matched, _ = nested.Match(&C.Metadata{Host: "example.com", NetWork: C.TCP})
	assert.True(t, matched)

	matched, _ = nested.Match(&C.Metadata{Host: "internal.example.com", NetWork: C.TCP})
	assert.False(t, matched)
}

func TestLogicUnresolvedIP(t *testing.T) {
	and, err := NewAND("((IP-CIDR,10.0.0.0/8),(DST-PORT,53))", "DIRECT")
	assert.NoError(t, err)
	assert.True(t, and.ShouldResolveIP())

	// sub-rule needs a destination IP the session does not have yet
	matched, _ := and.Match(&C.Metadata{Host: "example.com", DstPort: 53})
	assert.False(t, matched)

	matched, _ = and.Match(&C.Metadata{DstIP: netip.MustParseAddr("10.0.0.1"), DstPort: 53})
	assert.True(t, matched)
}

func TestLogicRejectsMatchAndRuleSet(t *testing.T) {
	_, err := NewOR("((MATCH,))", "DIRECT")
	assert.Error(t, err)

	_, err = NewAND("((RULE-SET,local),(NETWORK,tcp))", "DIRECT")
	assert.Error(t, err)
}
