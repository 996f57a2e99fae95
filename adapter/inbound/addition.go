package inbound

import (
	C "github.com/windrose-proxy/windrose/constant"
)

type Addition func(metadata *C.Metadata)

func (a Addition) Apply(metadata *C.Metadata) {
	a(metadata)
}

func ApplyAdditions(metadata *C.Metadata, additions ...Addition) {
	for _, addition := range additions {
		addition.Apply(metadata)
	}
}

func WithInName(name string) Addition {
	return func(metadata *C.Metadata) {
		metadata.InName = name
	}
}

func WithSpecialProxy(name string) Addition {
	return func(metadata *C.Metadata) {
		metadata.SpecialProxy = name
	}
}
