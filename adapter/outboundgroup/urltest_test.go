package outboundgroup

import (
	"context"
	"math"
	"testing"

	"github.com/windrose-proxy/windrose/adapter/provider"
	C "github.com/windrose-proxy/windrose/constant"
	types "github.com/windrose-proxy/windrose/constant/provider"

	"github.com/stretchr/testify/assert"
)

type staticProxy struct {
	C.ProxyAdapter
	name  string
	alive bool
	delay uint16
}

func (p *staticProxy) Name() string { return p.name }

func (p *staticProxy) Alive() bool { return p.alive }

func (p *staticProxy) DelayHistory() []C.DelayHistory { return nil }

func (p *staticProxy) LastDelay() uint16 {
	if !p.alive {
		return math.MaxUint16
	}
	return p.delay
}

func (p *staticProxy) LastMeanDelay() uint16 { return p.LastDelay() }

func (p *staticProxy) URLTest(ctx context.Context, url string) (uint16, uint16, error) {
	return p.delay, p.delay, nil
}

func TestURLTestTolerance(t *testing.T) {
	slow := &staticProxy{name: "slow", alive: true, delay: 200}
	quick := &staticProxy{name: "quick", alive: true, delay: 100}

	hc := provider.NewHealthCheck(nil, "", 0, true, "UT")
	pd, err := provider.NewCompatibleProvider("UT", []C.Proxy{slow, quick}, hc)
	assert.NoError(t, err)

	u := NewURLTest(
		&GroupCommonOption{Name: "UT"},
		[]types.ProxyProvider{pd},
		urlTestWithTolerance(50),
	)

	assert.Equal(t, "quick", u.Now())

	// an improvement inside the tolerance margin keeps the current node
	slow.delay = 80
	u.fastSingle.Reset()
	assert.Equal(t, "quick", u.Now())

	// beating the margin switches
	slow.delay = 30
	u.fastSingle.Reset()
	assert.Equal(t, "slow", u.Now())

	// a dead node is abandoned no matter the margin
	slow.alive = false
	u.fastSingle.Reset()
	assert.Equal(t, "quick", u.Now())
}

func TestURLTestZeroTolerance(t *testing.T) {
	a := &staticProxy{name: "a", alive: true, delay: 100}
	b := &staticProxy{name: "b", alive: true, delay: 200}

	hc := provider.NewHealthCheck(nil, "", 0, true, "UT0")
	pd, err := provider.NewCompatibleProvider("UT0", []C.Proxy{b, a}, hc)
	assert.NoError(t, err)

	u := NewURLTest(&GroupCommonOption{Name: "UT0"}, []types.ProxyProvider{pd})
	assert.Equal(t, "a", u.Now())

	// without tolerance any strictly better node wins
	b.delay = 99
	u.fastSingle.Reset()
	assert.Equal(t, "b", u.Now())
}
