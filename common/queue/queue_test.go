package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	q := New[int](4)
	q.Put(1, 2, 3)

	assert.Equal(t, int64(3), q.Len())
	assert.Equal(t, 3, q.Last())
	assert.Equal(t, []int{1, 2, 3}, q.Copy())

	assert.Equal(t, 1, q.Pop())

	head, ok := q.PopWithBool()
	assert.True(t, ok)
	assert.Equal(t, 2, head)

	q.Pop()
	_, ok = q.PopWithBool()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Pop())
}
