package constant

import (
	"encoding/json"
	"errors"
)

var errDNSModeInvalid = errors.New("invalid dns-mode")

type DNSMode int

const (
	// DNSNormal standard dns behavior
	DNSNormal DNSMode = iota
	// DNSFakeIP means responses with a fake ip drawn from the private pool
	DNSFakeIP
	// DNSMapping means the destination ip was reverse-mapped back to a domain
	DNSMapping
	// DNSHosts means the destination was rewritten from the static hosts table
	DNSHosts
)

// UnmarshalYAML unserialize EnhancedMode with yaml
func (e *DNSMode) UnmarshalYAML(unmarshal func(any) error) error {
	var tp string
	if err := unmarshal(&tp); err != nil {
		return err
	}
	mode, exist := dnsModeMapping[tp]
	if !exist {
		return errDNSModeInvalid
	}
	*e = mode
	return nil
}

// MarshalYAML serialize EnhancedMode with yaml
func (e DNSMode) MarshalYAML() (any, error) {
	return e.String(), nil
}

// UnmarshalJSON unserialize EnhancedMode with json
func (e *DNSMode) UnmarshalJSON(data []byte) error {
	var tp string
	if err := json.Unmarshal(data, &tp); err != nil {
		return err
	}
	mode, exist := dnsModeMapping[tp]
	if !exist {
		return errDNSModeInvalid
	}
	*e = mode
	return nil
}

// MarshalJSON serialize EnhancedMode with json
func (e DNSMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

var dnsModeMapping = map[string]DNSMode{
	"normal":  DNSNormal,
	"fake-ip": DNSFakeIP,
}

func (e DNSMode) String() string {
	switch e {
	case DNSNormal:
		return "normal"
	case DNSFakeIP:
		return "fake-ip"
	case DNSMapping:
		return "mapping"
	case DNSHosts:
		return "hosts"
	default:
		return "unknown"
	}
}
