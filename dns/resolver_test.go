package dns

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/windrose-proxy/windrose/common/cache"

	D "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

type countingClient struct {
	queries atomic.Int32
	block   chan struct{}
}

func (c *countingClient) Address() string { return "counting" }

func (c *countingClient) ExchangeContext(ctx context.Context, m *D.Msg) (*D.Msg, error) {
	c.queries.Add(1)
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	msg := &D.Msg{}
	msg.SetReply(m)
	rr, err := D.NewRR(m.Question[0].Name + " 60 IN A 8.8.8.8")
	if err != nil {
		return nil, err
	}
	msg.Answer = append(msg.Answer, rr)
	return msg, nil
}

func newTestResolver(c dnsClient) *Resolver {
	return &Resolver{
		main:     []dnsClient{c},
		lruCache: cache.New[string, *D.Msg](cache.WithSize[string, *D.Msg](4096)),
	}
}

func TestResolverSingleFlight(t *testing.T) {
	cc := &countingClient{block: make(chan struct{})}
	r := newTestResolver(cc)

	const concurrent = 8
	var (
		wg      sync.WaitGroup
		entered sync.WaitGroup
		results [concurrent]*D.Msg
		errs    [concurrent]error
	)

	for i := 0; i < concurrent; i++ {
		i := i
		wg.Add(1)
		entered.Add(1)
		go func() {
			defer wg.Done()

			query := &D.Msg{}
			query.SetQuestion("collapse.example.com.", D.TypeA)
			entered.Done()
			results[i], errs[i] = r.ExchangeContext(context.Background(), query)
		}()
	}

	// release the upstream only after every lookup is in flight
	entered.Wait()
	time.Sleep(time.Millisecond * 20)
	close(cc.block)
	wg.Wait()

	for i := 0; i < concurrent; i++ {
		assert.NoError(t, errs[i])
		assert.Len(t, results[i].Answer, 1)
	}
	assert.Equal(t, int32(1), cc.queries.Load())

	// a later lookup of the same question is answered from cache
	query := &D.Msg{}
	query.SetQuestion("collapse.example.com.", D.TypeA)
	msg, err := r.ExchangeContext(context.Background(), query)
	assert.NoError(t, err)
	assert.Len(t, msg.Answer, 1)
	assert.Equal(t, int32(1), cc.queries.Load())
}
