package config

import (
	"testing"

	"github.com/windrose-proxy/windrose/adapter"
	"github.com/windrose-proxy/windrose/adapter/outboundgroup"
	"github.com/windrose-proxy/windrose/adapter/provider"

	"github.com/stretchr/testify/assert"
)

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(`mixed-port: 7890`))
	assert.NoError(t, err)

	assert.Equal(t, 7890, cfg.General.MixedPort)
	assert.Equal(t, "*", cfg.General.BindAddress)

	// built-in outbounds and the GLOBAL group always exist
	for _, name := range []string{"DIRECT", "REJECT", "REJECT-DROP", "PASS", "GLOBAL"} {
		_, exist := cfg.Proxies[name]
		assert.Truef(t, exist, "missing built-in proxy %s", name)
	}

	// the inline proxies live in the reserved provider
	_, exist := cfg.Providers[provider.ReservedName]
	assert.True(t, exist)
}

func TestParse_RuleCatchAll(t *testing.T) {
	// a rule list without a final MATCH is a config error
	_, err := Parse([]byte(`
rules:
  - DOMAIN-SUFFIX,example.com,DIRECT
`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
rules:
  - MATCH,DIRECT
  - DOMAIN-SUFFIX,example.com,DIRECT
`))
	assert.Error(t, err)
}

func TestParse_RuleLogicMalformed(t *testing.T) {
	for _, raw := range []string{
		"rules:\n  - NOT\n  - MATCH,DIRECT",
		"rules:\n  - OR,DIRECT\n  - MATCH,DIRECT",
		"rules:\n  - AND\n  - MATCH,DIRECT",
	} {
		_, err := Parse([]byte(raw))
		assert.Errorf(t, err, "expected error for %q", raw)
	}
}

func TestParse_Groups(t *testing.T) {
	cfg, err := Parse([]byte(`
proxy-groups:
  - name: Auto
    type: select
    proxies:
      - DIRECT
      - REJECT
rules:
  - DOMAIN-SUFFIX,example.com,Auto
  - MATCH,DIRECT
`))
	assert.NoError(t, err)

	auto, exist := cfg.Proxies["Auto"]
	assert.True(t, exist)
	assert.IsType(t, &outboundgroup.Selector{}, auto.(*adapter.Proxy).ProxyAdapter)
	assert.Len(t, cfg.Rules, 2)
}

func TestParse_GroupReference(t *testing.T) {
	// groups can reference each other regardless of order
	_, err := Parse([]byte(`
proxy-groups:
  - name: A
    type: select
    proxies:
      - B
  - name: B
    type: select
    proxies:
      - DIRECT
rules:
  - MATCH,A
`))
	assert.NoError(t, err)

	// loops are a config error
	_, err = Parse([]byte(`
proxy-groups:
  - name: A
    type: select
    proxies:
      - B
  - name: B
    type: select
    proxies:
      - A
`))
	assert.Error(t, err)
}

func TestParse_RuleSets(t *testing.T) {
	cfg, err := Parse([]byte(`
rule-sets:
  lan:
    - IP-CIDR,10.0.0.0/8,no-resolve
    - IP-CIDR,192.168.0.0/16,no-resolve
rules:
  - RULE-SET,lan,DIRECT
  - MATCH,DIRECT
`))
	assert.NoError(t, err)
	assert.Len(t, cfg.RuleSets["lan"], 2)

	_, err = Parse([]byte(`
rules:
  - RULE-SET,missing,DIRECT
`))
	assert.Error(t, err)
}

func TestParse_RuleTargetMissing(t *testing.T) {
	_, err := Parse([]byte(`
rules:
  - DOMAIN,example.com,NoSuchProxy
`))
	assert.Error(t, err)
}

func TestParse_DNS(t *testing.T) {
	cfg, err := Parse([]byte(`
dns:
  enable: true
  enhanced-mode: fake-ip
  nameserver:
    - 1.1.1.1
    - tls://8.8.8.8:853
  fallback:
    - https://1.0.0.1/dns-query
`))
	assert.NoError(t, err)
	assert.True(t, cfg.DNS.Enable)
	assert.Len(t, cfg.DNS.NameServer, 2)
	assert.Len(t, cfg.DNS.Fallback, 1)
	assert.NotNil(t, cfg.DNS.FakeIPRange)

	// enabled DNS demands at least one nameserver
	_, err = Parse([]byte(`
dns:
  enable: true
`))
	assert.Error(t, err)
}

func TestParse_Hosts(t *testing.T) {
	cfg, err := Parse([]byte(`
hosts:
  router.local: 192.168.1.1
`))
	assert.NoError(t, err)
	assert.NotNil(t, cfg.Hosts.Search("router.local"))
	assert.NotNil(t, cfg.Hosts.Search("localhost"))
}

func TestParse_Tun(t *testing.T) {
	cfg, err := Parse([]byte(`
tun:
  enable: true
  stack: system
  inet4-address:
    - 172.19.0.1/30
`))
	assert.NoError(t, err)
	assert.True(t, cfg.General.Tun.Enable)
	assert.Equal(t, "system", cfg.General.Tun.Stack)
	assert.Len(t, cfg.General.Tun.Inet4Address, 1)

	_, err = Parse([]byte(`
tun:
  enable: true
  inet4-address:
    - not-a-prefix
`))
	assert.Error(t, err)
}
