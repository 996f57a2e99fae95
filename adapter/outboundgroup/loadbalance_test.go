package outboundgroup

import (
	"net/netip"
	"testing"

	C "github.com/windrose-proxy/windrose/constant"

	"github.com/stretchr/testify/assert"
)

func TestJumpHash(t *testing.T) {
	// same key always lands in the same bucket
	for _, key := range []uint64{0, 1, 42, 1 << 40} {
		first := jumpHash(key, 10)
		assert.Equal(t, first, jumpHash(key, 10))
		assert.GreaterOrEqual(t, first, int32(0))
		assert.Less(t, first, int32(10))
	}

	// growing the bucket count only moves a fraction of keys
	moved := 0
	const total = 1000
	for i := uint64(0); i < total; i++ {
		if jumpHash(i, 10) != jumpHash(i, 11) {
			moved++
		}
	}
	assert.Less(t, moved, total/5)
}

func TestGetKey(t *testing.T) {
	assert.Equal(t, "", getKey(nil))
	assert.Equal(t, "", getKey(&C.Metadata{}))

	// one client shares a key across destinations
	src := netip.MustParseAddr("192.168.1.10")
	assert.Equal(t,
		getKey(&C.Metadata{SrcIP: src, Host: "a.example.com"}),
		getKey(&C.Metadata{SrcIP: src, Host: "b.example.org"}))

	// different clients get different keys
	assert.NotEqual(t,
		getKey(&C.Metadata{SrcIP: netip.MustParseAddr("192.168.1.10")}),
		getKey(&C.Metadata{SrcIP: netip.MustParseAddr("192.168.1.11")}))

	// without a source, literal IP hosts are used as-is
	assert.Equal(t, "1.2.3.4", getKey(&C.Metadata{Host: "1.2.3.4"}))

	// without a source, subdomains of one site share a key
	assert.Equal(t, getKey(&C.Metadata{Host: "a.example.com"}), getKey(&C.Metadata{Host: "b.example.com"}))
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, "consistent-hashing", parseStrategy(map[string]any{}))
	assert.Equal(t, "round-robin", parseStrategy(map[string]any{"strategy": "round-robin"}))
}

func TestNewLoadBalanceStrategy(t *testing.T) {
	option := &GroupCommonOption{Name: "LB"}

	for _, strategy := range []string{"random", "consistent-hashing", "round-robin"} {
		lb, err := NewLoadBalance(option, nil, strategy)
		assert.NoError(t, err)
		assert.NotNil(t, lb)
	}

	_, err := NewLoadBalance(option, nil, "least-connections")
	assert.ErrorIs(t, err, errStrategy)
}
