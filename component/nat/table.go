package nat

import (
	"sync"

	C "github.com/windrose-proxy/windrose/constant"

	"github.com/puzpuzpuz/xsync/v3"
)

type Table struct {
	mapping *xsync.MapOf[string, *entry]
	lockMap *xsync.MapOf[string, *sync.Cond]
}

type entry struct {
	PacketConn     C.PacketConn
	WriteBackProxy C.WriteBackProxy
}

func (t *Table) Set(key string, e C.PacketConn, w C.WriteBackProxy) {
	t.mapping.Store(key, &entry{
		PacketConn:     e,
		WriteBackProxy: w,
	})
}

func (t *Table) Get(key string) (C.PacketConn, C.WriteBackProxy) {
	item, exist := t.mapping.Load(key)
	if !exist {
		return nil, nil
	}
	return item.PacketConn, item.WriteBackProxy
}

func (t *Table) GetOrCreateLock(key string) (*sync.Cond, bool) {
	item, loaded := t.lockMap.LoadOrCompute(key, makeLock)
	return item, loaded
}

func (t *Table) Delete(key string) {
	t.mapping.Delete(key)
}

func (t *Table) DeleteLock(lockKey string) {
	t.lockMap.Delete(lockKey)
}

func makeLock() *sync.Cond {
	return sync.NewCond(&sync.Mutex{})
}

var _ C.NatTable = (*Table)(nil)

func New() *Table {
	return &Table{
		mapping: xsync.NewMapOf[string, *entry](),
		lockMap: xsync.NewMapOf[string, *sync.Cond](),
	}
}
