package sing

import (
	"context"
	"fmt"

	"github.com/windrose-proxy/windrose/log"

	L "github.com/sagernet/sing/common/logger"
)

type logger struct{}

var Logger L.ContextLogger = logger{}

func (l logger) Trace(args ...any) {
	log.Debugln(fmt.Sprint(args...))
}

func (l logger) Debug(args ...any) {
	log.Debugln(fmt.Sprint(args...))
}

func (l logger) Info(args ...any) {
	log.Infoln(fmt.Sprint(args...))
}

func (l logger) Warn(args ...any) {
	log.Warnln(fmt.Sprint(args...))
}

func (l logger) Error(args ...any) {
	log.Errorln(fmt.Sprint(args...))
}

func (l logger) Fatal(args ...any) {
	log.Errorln(fmt.Sprint(args...))
}

func (l logger) Panic(args ...any) {
	log.Errorln(fmt.Sprint(args...))
}

func (l logger) TraceContext(ctx context.Context, args ...any) {
	l.Trace(args...)
}

func (l logger) DebugContext(ctx context.Context, args ...any) {
	l.Debug(args...)
}

func (l logger) InfoContext(ctx context.Context, args ...any) {
	l.Info(args...)
}

func (l logger) WarnContext(ctx context.Context, args ...any) {
	l.Warn(args...)
}

func (l logger) ErrorContext(ctx context.Context, args ...any) {
	l.Error(args...)
}

func (l logger) FatalContext(ctx context.Context, args ...any) {
	l.Fatal(args...)
}

func (l logger) PanicContext(ctx context.Context, args ...any) {
	l.Panic(args...)
}
