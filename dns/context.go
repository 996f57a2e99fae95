package dns

import (
	"context"
)

const (
	TypeHost   = "host"
	TypeFakeIP = "fakeip"
	TypeRaw    = "raw"
)

// Context tags which stage answered a query, for access logging
type Context struct {
	context.Context
	tp string
}

func NewContext(ctx context.Context) *Context {
	return &Context{Context: ctx}
}

func (c *Context) SetType(tp string) {
	c.tp = tp
}

func (c *Context) Type() string {
	return c.tp
}
