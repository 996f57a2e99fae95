package dns

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/windrose-proxy/windrose/common/cache"

	D "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func makeARecord(name string, ip string, ttl uint32) *D.A {
	return &D.A{
		Hdr: D.RR_Header{
			Name:   D.Fqdn(name),
			Rrtype: D.TypeA,
			Class:  D.ClassINET,
			Ttl:    ttl,
		},
		A: net.ParseIP(ip),
	}
}

func TestMinimalTTL(t *testing.T) {
	records := []D.RR{
		makeARecord("a.com", "1.1.1.1", 600),
		makeARecord("a.com", "1.0.0.1", 60),
		makeARecord("a.com", "8.8.8.8", 3600),
	}

	assert.Equal(t, uint32(60), minimalTTL(records))
	assert.Equal(t, uint32(0), minimalTTL(nil))
}

func TestUpdateTTL(t *testing.T) {
	records := []D.RR{
		makeARecord("a.com", "1.1.1.1", 600),
		makeARecord("a.com", "1.0.0.1", 60),
	}

	updateTTL(records, 30)
	assert.Equal(t, uint32(570), records[0].Header().Ttl)
	assert.Equal(t, uint32(30), records[1].Header().Ttl)
}

func TestMsgToIP(t *testing.T) {
	msg := &D.Msg{}
	msg.Answer = []D.RR{
		makeARecord("example.com", "93.184.216.34", 300),
		&D.CNAME{
			Hdr:    D.RR_Header{Name: "www.example.com.", Rrtype: D.TypeCNAME, Class: D.ClassINET, Ttl: 300},
			Target: "example.com.",
		},
	}

	ips := msgToIP(msg)
	assert.Len(t, ips, 1)
	assert.Equal(t, netip.MustParseAddr("93.184.216.34"), ips[0])
}

func TestIsIPRequest(t *testing.T) {
	assert.True(t, isIPRequest(D.Question{Qclass: D.ClassINET, Qtype: D.TypeA}))
	assert.True(t, isIPRequest(D.Question{Qclass: D.ClassINET, Qtype: D.TypeAAAA}))
	assert.False(t, isIPRequest(D.Question{Qclass: D.ClassINET, Qtype: D.TypeTXT}))
	assert.False(t, isIPRequest(D.Question{Qclass: D.ClassCHAOS, Qtype: D.TypeA}))
}

func TestPutMsgToCache(t *testing.T) {
	c := cache.New[string, *D.Msg](cache.WithSize[string, *D.Msg](16))

	msg := &D.Msg{}
	msg.SetQuestion("example.com.", D.TypeA)
	msg.Answer = []D.RR{makeARecord("example.com", "93.184.216.34", 300)}

	putMsgToCache(c, "example.com.A", msg)

	cached, expire, exist := c.GetWithExpire("example.com.A")
	assert.True(t, exist)
	assert.Len(t, cached.Answer, 1)

	// TTL is clamped to the cache ceiling
	assert.LessOrEqual(t, time.Until(expire), time.Duration(MaxMsgCacheTTL)*time.Second+time.Second)

	// zero TTL answers are not cached
	empty := &D.Msg{}
	empty.SetQuestion("other.com.", D.TypeA)
	putMsgToCache(c, "other.com.A", empty)
	assert.False(t, c.Exist("other.com.A"))

	// failures are cached for a short window
	failure := &D.Msg{}
	failure.SetQuestion("fail.com.", D.TypeA)
	failure.Rcode = D.RcodeServerFailure
	putMsgToCache(c, "fail.com.A", failure)
	assert.True(t, c.Exist("fail.com.A"))
}

func TestHandleMsgWithEmptyAnswer(t *testing.T) {
	req := &D.Msg{}
	req.SetQuestion("example.com.", D.TypeAAAA)

	resp := handleMsgWithEmptyAnswer(req)
	assert.Equal(t, req.Id, resp.Id)
	assert.Equal(t, D.RcodeSuccess, resp.Rcode)
	assert.True(t, resp.Authoritative)
	assert.Empty(t, resp.Answer)
}
