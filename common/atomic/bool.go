package atomic

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
)

type Bool struct {
	atomic.Bool
}

func NewBool(val bool) (i Bool) {
	i.Store(val)
	return
}

func (i *Bool) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(i.Load())), nil
}

func (i *Bool) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	i.Store(v)
	return nil
}

func (i *Bool) String() string {
	v := i.Load()
	return strconv.FormatBool(v)
}

type Int64 struct {
	atomic.Int64
}

func NewInt64(val int64) (i Int64) {
	i.Store(val)
	return
}

func (i *Int64) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(i.Load(), 10)), nil
}

func (i *Int64) UnmarshalJSON(b []byte) error {
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	i.Store(v)
	return nil
}

func (i *Int64) String() string {
	v := i.Load()
	return strconv.FormatInt(v, 10)
}
