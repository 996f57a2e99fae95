package batch

import (
	"context"
	"sync"
)

type Option = func(b *batchOption)

type batchOption struct {
	concurrencyNum int
}

type Result[T any] struct {
	Value T
	Err   error
}

type Error struct {
	Key string
	Err error
}

func WithConcurrencyNum(n int) Option {
	return func(opt *batchOption) {
		opt.concurrencyNum = n
	}
}

// Batch similar to errgroup, but can control the maximum number of concurrent
type Batch[T any] struct {
	result map[string]Result[T]
	queue  chan struct{}
	wg     sync.WaitGroup
	mux    sync.Mutex
	err    *Error
	once   sync.Once
	cancel func()
	ctx    context.Context
}

func (b *Batch[T]) Go(key string, fn func() (T, error)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if b.queue != nil {
			select {
			case <-b.ctx.Done():
				return
			case b.queue <- struct{}{}:
			}
			defer func() {
				<-b.queue
			}()
		}

		value, err := fn()
		if err != nil {
			b.once.Do(func() {
				b.err = &Error{key, err}
				if b.cancel != nil {
					b.cancel()
				}
			})
		}

		ret := Result[T]{value, err}
		b.mux.Lock()
		defer b.mux.Unlock()
		b.result[key] = ret
	}()
}

func (b *Batch[T]) Wait() *Error {
	b.wg.Wait()
	if b.cancel != nil {
		b.cancel()
	}
	return b.err
}

func (b *Batch[T]) WaitAndGetResult() (map[string]Result[T], *Error) {
	err := b.Wait()
	return b.Result(), err
}

func (b *Batch[T]) Result() map[string]Result[T] {
	b.mux.Lock()
	defer b.mux.Unlock()
	copyM := map[string]Result[T]{}
	for k, v := range b.result {
		copyM[k] = v
	}
	return copyM
}

func New[T any](ctx context.Context, opts ...Option) (*Batch[T], context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	opt := &batchOption{}
	for _, o := range opts {
		o(opt)
	}

	b := &Batch[T]{
		result: map[string]Result[T]{},
		ctx:    ctx,
		cancel: cancel,
	}

	if opt.concurrencyNum > 0 {
		b.queue = make(chan struct{}, opt.concurrencyNum)
	}

	return b, ctx
}
