package batch

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatch(t *testing.T) {
	b, _ := New[string](context.Background())

	now := time.Now()
	for i := 0; i < 3; i++ {
		idx := i
		b.Go(strconv.Itoa(idx), func() (string, error) {
			time.Sleep(time.Millisecond * 100)
			return strconv.Itoa(idx), nil
		})
	}

	result, err := b.WaitAndGetResult()
	assert.Nil(t, err)
	assert.True(t, time.Since(now) < time.Millisecond*200)
	assert.Len(t, result, 3)

	for k, v := range result {
		assert.NoError(t, v.Err)
		assert.Equal(t, k, v.Value)
	}
}

func TestBatchWithConcurrencyNum(t *testing.T) {
	b, _ := New[string](
		context.Background(),
		WithConcurrencyNum(3),
	)

	now := time.Now()
	for i := 0; i < 7; i++ {
		idx := i
		b.Go(strconv.Itoa(idx), func() (string, error) {
			time.Sleep(time.Millisecond * 100)
			return strconv.Itoa(idx), nil
		})
	}

	result, _ := b.WaitAndGetResult()
	assert.True(t, time.Since(now) > time.Millisecond*260)
	assert.Len(t, result, 7)
}

func TestBatchContext(t *testing.T) {
	b, ctx := New[string](context.Background())

	b.Go("error", func() (string, error) {
		time.Sleep(time.Millisecond * 100)
		return "", errors.New("test error")
	})

	b.Go("ctx", func() (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	err := b.Wait()
	assert.NotNil(t, err)
	assert.Equal(t, "error", err.Key)
}
