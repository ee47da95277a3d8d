package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// JSON 把 *T 以 JSON 存进 Cache；C 为 nil 时每次直接回源
type JSON[T any] struct {
	C   *Cache
	TTL time.Duration
	// Prefix 拼在 key 前，区分实体，例如 "rol:nombre:"
	Prefix string
}

// errMiss 回源为空，不写缓存
var errMiss = errors.New("cache: miss")

// Get 回源返回 (nil, nil) 时不缓存，实体创建后下一次读取即可见
func (j JSON[T]) Get(ctx context.Context, key string, load func(ctx context.Context) (*T, error)) (*T, error) {
	if j.C == nil {
		return load(ctx)
	}
	b, err := j.C.GetOrLoad(ctx, j.Prefix+key, j.TTL, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if v == nil {
			return nil, errMiss
		}
		return json.Marshal(v)
	})
	if errors.Is(err, errMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget 实体变更后主动失效
func (j JSON[T]) Forget(ctx context.Context, keys ...string) error {
	if j.C == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = j.Prefix + k
	}
	return j.C.Delete(ctx, full...)
}
