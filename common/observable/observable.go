package observable

import (
	"errors"
	"sync"
)

type Observable[T any] struct {
	iterable Iterable[T]
	listener map[Subscription[T]]*Subscriber[T]
	mux      sync.Mutex
	done     bool
	doneLock sync.RWMutex
}

func (o *Observable[T]) process() {
	for item := range o.iterable {
		o.mux.Lock()
		for _, sub := range o.listener {
			sub.Emit(item)
		}
		o.mux.Unlock()
	}
	o.close()
}

func (o *Observable[T]) close() {
	o.doneLock.Lock()
	o.done = true
	o.doneLock.Unlock()

	o.mux.Lock()
	defer o.mux.Unlock()
	for _, sub := range o.listener {
		sub.Close()
	}
}

func (o *Observable[T]) Subscribe() (Subscription[T], error) {
	o.doneLock.RLock()
	done := o.done
	o.doneLock.RUnlock()
	if done {
		return nil, errors.New("observable is closed")
	}

	o.mux.Lock()
	defer o.mux.Unlock()
	subscriber := newSubscriber[T]()
	o.listener[subscriber.Out()] = subscriber
	return subscriber.Out(), nil
}

func (o *Observable[T]) UnSubscribe(sub Subscription[T]) {
	o.mux.Lock()
	defer o.mux.Unlock()
	subscriber, exist := o.listener[sub]
	if !exist {
		return
	}
	delete(o.listener, sub)
	subscriber.Close()
}

func NewObservable[T any](iter Iterable[T]) *Observable[T] {
	observable := &Observable[T]{
		iterable: iter,
		listener: map[Subscription[T]]*Subscriber[T]{},
	}
	go observable.process()
	return observable
}
