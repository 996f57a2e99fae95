package rules

import (
	"github.com/windrose-proxy/windrose/component/geodata"
	C "github.com/windrose-proxy/windrose/constant"
)

type GEOSITE struct {
	country string
	adapter string
	matcher geodata.Matcher
}

func (gs *GEOSITE) RuleType() C.RuleType {
	return C.GEOSITE
}

func (gs *GEOSITE) Match(metadata *C.Metadata) (bool, string) {
	domain := metadata.RuleHost()
	if len(domain) == 0 {
		return false, ""
	}
	return gs.matcher.ApplyDomain(domain), gs.adapter
}

func (gs *GEOSITE) Adapter() string {
	return gs.adapter
}

func (gs *GEOSITE) Payload() string {
	return gs.country
}

func (gs *GEOSITE) ShouldResolveIP() bool {
	return false
}

func (gs *GEOSITE) ShouldFindProcess() bool {
	return false
}

func NewGEOSITE(country string, adapter string) (*GEOSITE, error) {
	matcher, err := geodata.LoadGeoSiteMatcher(country)
	if err != nil {
		return nil, err
	}

	return &GEOSITE{
		country: country,
		adapter: adapter,
		matcher: matcher,
	}, nil
}

var _ C.Rule = (*GEOSITE)(nil)
