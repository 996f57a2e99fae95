package rules

import (
	"strings"

	"github.com/windrose-proxy/windrose/component/mmdb"
	C "github.com/windrose-proxy/windrose/constant"
)

type GEOIP struct {
	country     string
	adapter     string
	noResolveIP bool
}

func (g *GEOIP) RuleType() C.RuleType {
	return C.GEOIP
}

func (g *GEOIP) Match(metadata *C.Metadata) (bool, string) {
	ip := metadata.DstIP
	if !ip.IsValid() {
		return false, ""
	}

	if strings.EqualFold(g.country, "LAN") {
		return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast(), g.adapter
	}

	var record struct {
		Country struct {
			IsoCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	_ = mmdb.Instance().Lookup(ip.AsSlice(), &record)
	return strings.EqualFold(record.Country.IsoCode, g.country), g.adapter
}

func (g *GEOIP) Adapter() string {
	return g.adapter
}

func (g *GEOIP) Payload() string {
	return g.country
}

func (g *GEOIP) ShouldResolveIP() bool {
	return !g.noResolveIP
}

func (g *GEOIP) ShouldFindProcess() bool {
	return false
}

func NewGEOIP(country string, adapter string, noResolveIP bool) *GEOIP {
	return &GEOIP{
		country:     country,
		adapter:     adapter,
		noResolveIP: noResolveIP,
	}
}

var _ C.Rule = (*GEOIP)(nil)
