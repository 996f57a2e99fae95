package socks5

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddr(t *testing.T) {
	addr := ParseAddr("www.example.com:80")
	assert.NotNil(t, addr)
	assert.Equal(t, byte(AtypDomainName), addr[0])
	assert.Equal(t, "www.example.com:80", addr.String())

	addr = ParseAddr("127.0.0.1:1080")
	assert.NotNil(t, addr)
	assert.Equal(t, byte(AtypIPv4), addr[0])
	assert.Equal(t, "127.0.0.1:1080", addr.String())

	addr = ParseAddr("[::1]:443")
	assert.NotNil(t, addr)
	assert.Equal(t, byte(AtypIPv6), addr[0])

	assert.Nil(t, ParseAddr("no-port"))
	assert.Nil(t, ParseAddr(""))
}

func TestSplitAddr(t *testing.T) {
	raw := ParseAddr("example.com:443")
	buf := append([]byte{}, raw...)
	buf = append(buf, []byte("trailing payload")...)

	addr := SplitAddr(buf)
	assert.Equal(t, len(raw), len(addr))
	assert.Equal(t, "example.com:443", addr.String())

	assert.Nil(t, SplitAddr([]byte{AtypDomainName}))
}

func TestUDPPacketCodec(t *testing.T) {
	addr := ParseAddr("8.8.8.8:53")
	payload := []byte("dns query")

	packet, err := EncodeUDPPacket(addr, payload)
	assert.NoError(t, err)

	decodedAddr, decodedPayload, err := DecodeUDPPacket(packet)
	assert.NoError(t, err)
	assert.Equal(t, addr.String(), decodedAddr.String())
	assert.Equal(t, payload, decodedPayload)

	// fragmented packets are not supported
	packet[2] = 1
	_, _, err = DecodeUDPPacket(packet)
	assert.Error(t, err)

	_, _, err = DecodeUDPPacket([]byte{0, 0})
	assert.Error(t, err)
}
