package nat

import (
	"net"

	"github.com/windrose-proxy/windrose/common/atomic"
	C "github.com/windrose-proxy/windrose/constant"
)

type writeBackProxy struct {
	wb atomic.TypedValue[C.WriteBack]
}

func (w *writeBackProxy) WriteBack(b []byte, addr net.Addr) (int, error) {
	return w.wb.Load().WriteBack(b, addr)
}

// UpdateWriteBack rebinds the reply path to the most recent inbound packet,
// keeping replies flowing when the client's socket changes.
func (w *writeBackProxy) UpdateWriteBack(wb C.WriteBack) {
	w.wb.Store(wb)
}

func NewWriteBackProxy(wb C.WriteBack) C.WriteBackProxy {
	w := &writeBackProxy{}
	w.UpdateWriteBack(wb)
	return w
}
