package net

import (
	"github.com/sagernet/sing/common"
	"github.com/sagernet/sing/common/network"
)

// NeedHandshake reports whether conn is an early conn still waiting for
// its first payload write.
func NeedHandshake(conn any) bool {
	earlyConn, ok := common.Cast[network.EarlyConn](conn)
	return ok && earlyConn.NeedHandshake()
}
