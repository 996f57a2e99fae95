package channel

import (
	list "github.com/bahlo/generic-list-go"
)

// InfiniteChannel implements the Channel interface with an infinite buffer
// between the input and the output.
type InfiniteChannel[T any] struct {
	input, output chan T
	length        chan int
	buffer        *list.List[T]
}

func NewInfiniteChannel[T any]() *InfiniteChannel[T] {
	ch := &InfiniteChannel[T]{
		input:  make(chan T),
		output: make(chan T),
		length: make(chan int),
		buffer: list.New[T](),
	}
	go ch.infiniteBuffer()
	return ch
}

func (ch *InfiniteChannel[T]) In() chan<- T {
	return ch.input
}

func (ch *InfiniteChannel[T]) Out() <-chan T {
	return ch.output
}

func (ch *InfiniteChannel[T]) Len() int {
	return <-ch.length
}

func (ch *InfiniteChannel[T]) Close() {
	close(ch.input)
}

func (ch *InfiniteChannel[T]) infiniteBuffer() {
	var input, output chan T
	var next T
	input = ch.input

	for input != nil || output != nil {
		select {
		case elem, open := <-input:
			if open {
				ch.buffer.PushBack(elem)
			} else {
				input = nil
			}
		case output <- next:
			ch.buffer.Remove(ch.buffer.Front())
		case ch.length <- ch.buffer.Len():
		}

		if ch.buffer.Len() > 0 {
			output = ch.output
			next = ch.buffer.Front().Value
		} else {
			output = nil
			next = getZero[T]()
		}
	}

	close(ch.output)
	close(ch.length)
}

func getZero[T any]() T {
	var result T
	return result
}
