package rules

import (
	"strconv"
	"strings"

	C "github.com/windrose-proxy/windrose/constant"
)

type Port struct {
	adapter  string
	port     string
	ruleType C.RuleType
	portL    uint16
	portR    uint16
}

func (p *Port) RuleType() C.RuleType {
	return p.ruleType
}

func (p *Port) Match(metadata *C.Metadata) (bool, string) {
	targetPort := metadata.DstPort
	if p.ruleType == C.SrcPort {
		targetPort = metadata.SrcPort
	}
	return targetPort >= p.portL && targetPort <= p.portR, p.adapter
}

func (p *Port) Adapter() string {
	return p.adapter
}

func (p *Port) Payload() string {
	return p.port
}

func (p *Port) ShouldResolveIP() bool {
	return false
}

func (p *Port) ShouldFindProcess() bool {
	return false
}

func NewPort(port string, adapter string, ruleType C.RuleType) (*Port, error) {
	p := &Port{
		adapter:  adapter,
		port:     port,
		ruleType: ruleType,
	}

	portS := strings.Split(port, "-")
	switch len(portS) {
	case 1:
		uint64Port, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return nil, errPayload
		}
		p.portL = uint16(uint64Port)
		p.portR = p.portL
	case 2:
		uint64Port, err := strconv.ParseUint(portS[0], 10, 16)
		if err != nil {
			return nil, errPayload
		}
		p.portL = uint16(uint64Port)

		uint64Port, err = strconv.ParseUint(portS[1], 10, 16)
		if err != nil {
			return nil, errPayload
		}
		p.portR = uint16(uint64Port)

		if p.portL > p.portR {
			return nil, errPayload
		}
	default:
		return nil, errPayload
	}
	return p, nil
}

var _ C.Rule = (*Port)(nil)
