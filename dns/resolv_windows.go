//go:build windows

package dns

import "errors"

func dnsReadConfig() ([]string, error) {
	return nil, errors.New("system nameserver discovery is not supported on windows")
}
