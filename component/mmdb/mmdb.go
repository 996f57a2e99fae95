package mmdb

import (
	"net/netip"
	"sync"

	"github.com/windrose-proxy/windrose/constant"
	"github.com/windrose-proxy/windrose/log"

	"github.com/oschwald/maxminddb-golang"
)

var (
	mmdb *maxminddb.Reader
	once sync.Once
)

func LoadFromBytes(buffer []byte) {
	once.Do(func() {
		var err error
		mmdb, err = maxminddb.FromBytes(buffer)
		if err != nil {
			log.Fatalln("Can't load mmdb: %s", err.Error())
		}
	})
}

func Verify() bool {
	instance, err := maxminddb.Open(constant.Path.MMDB())
	if err == nil {
		instance.Close()
	}
	return err == nil
}

func Instance() *maxminddb.Reader {
	once.Do(func() {
		var err error
		mmdb, err = maxminddb.Open(constant.Path.MMDB())
		if err != nil {
			log.Fatalln("Can't load mmdb: %s", err.Error())
		}
	})

	return mmdb
}

// IsoCode looks up the country code of ip, empty when unknown.
func IsoCode(ip netip.Addr) string {
	record := struct {
		Country struct {
			IsoCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}{}
	_ = Instance().Lookup(ip.AsSlice(), &record)
	return record.Country.IsoCode
}
