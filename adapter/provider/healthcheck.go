package provider

import (
	"context"
	"time"

	"github.com/windrose-proxy/windrose/common/atomic"
	"github.com/windrose-proxy/windrose/common/batch"
	"github.com/windrose-proxy/windrose/common/utils"
	C "github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/log"
)

const (
	defaultURLTestTimeout = time.Second * 5
	defaultURLTestURL     = "http://cp.cloudflare.com/generate_204"
)

var healthCheckLazyDefault = true

type HealthCheckOption struct {
	URL      string
	Interval uint
}

type HealthCheck struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	url       string
	proxies   []C.Proxy
	interval  time.Duration
	lazy      bool
	lastTouch atomic.TypedValue[time.Time]
	checking  atomic.Bool
	gName     string
}

func (hc *HealthCheck) process() {
	ticker := time.NewTicker(hc.interval)

	go hc.lazyCheck()

	for {
		select {
		case <-ticker.C:
			hc.lazyCheck()
		case <-hc.ctx.Done():
			ticker.Stop()
			return
		}
	}
}

func (hc *HealthCheck) lazyCheck() bool {
	lastTouch := hc.lastTouch.Load()
	since := time.Since(lastTouch)
	if !hc.lazy || since < hc.interval {
		hc.check()
		return true
	}
	log.Debugln("Skip once health check because we are lazy (%s)", hc.gName)
	return false
}

func (hc *HealthCheck) setProxy(proxies []C.Proxy) {
	hc.proxies = proxies
}

func (hc *HealthCheck) auto() bool {
	return hc.interval != 0
}

func (hc *HealthCheck) touch() {
	hc.lastTouch.Store(time.Now())
}

func (hc *HealthCheck) check() {
	if hc.checking.Swap(true) {
		log.Infoln("A Health Checking (%s) is Running, break", hc.gName)
		return
	}
	defer func() {
		hc.checking.Store(false)
	}()

	id := utils.NewUUIDV4().String()
	log.Debugln("Start New Health Checking (%s) {%s}", hc.gName, id)
	b, _ := batch.New[any](hc.ctx, batch.WithConcurrencyNum(10))
	for _, proxy := range hc.proxies {
		p := proxy
		b.Go(p.Name(), func() (any, error) {
			ctx, cancel := context.WithTimeout(hc.ctx, defaultURLTestTimeout)
			defer cancel()
			_, _, _ = p.URLTest(ctx, hc.url)
			log.Debugln("Health Checked (%s) %s : %t %d ms {%s}", hc.gName, p.Name(), p.Alive(), p.LastDelay(), id)
			return nil, nil
		})
	}
	b.Wait()
	log.Debugln("Finish A Health Checking (%s) {%s}", hc.gName, id)
}

func (hc *HealthCheck) close() {
	hc.ctxCancel()
}

func NewHealthCheck(proxies []C.Proxy, url string, interval uint, lazy bool, gName string) *HealthCheck {
	if url == "" {
		url = defaultURLTestURL
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &HealthCheck{
		ctx:       ctx,
		ctxCancel: cancel,
		proxies:   proxies,
		url:       url,
		interval:  time.Duration(interval) * time.Second,
		lazy:      lazy,
		gName:     gName,
	}
}

func HealthCheckLazyDefault() bool {
	return healthCheckLazyDefault
}

func SetHealthCheckLazyDefault(lazy bool) {
	healthCheckLazyDefault = lazy
}
