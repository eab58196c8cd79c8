// Package kv provides the namespaced key-value content store and its backends.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Namespaces used by the service.
const (
	NamespaceSermons     = "sermons"
	NamespacePrayers     = "prayers"
	NamespacePrayerLogs  = "prayer_logs"
	NamespaceBlog        = "blog"
	NamespaceAnalytics   = "analytics"
	NamespaceDevotionals = "devotionals"
)

// Store is one namespace of the content store. Values are opaque bytes and are
// returned exactly as written.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, opts ...PutOption) error
	// List returns the live keys starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Claimer is implemented by stores that can write a key only when it is
// absent as a single atomic step. Expired keys count as absent.
type Claimer interface {
	PutIfAbsent(ctx context.Context, key string, value []byte, opts ...PutOption) (bool, error)
}

// PutIfAbsent writes key only when no live value exists and reports whether
// it did. Stores without Claimer fall back to a read followed by a write.
func PutIfAbsent(ctx context.Context, store Store, key string, value []byte, opts ...PutOption) (bool, error) {
	if claimer, ok := store.(Claimer); ok {
		return claimer.PutIfAbsent(ctx, key, value, opts...)
	}
	if _, errGet := store.Get(ctx, key); errGet == nil {
		return false, nil
	} else if !errors.Is(errGet, ErrNotFound) {
		return false, errGet
	}
	if errPut := store.Put(ctx, key, value, opts...); errPut != nil {
		return false, errPut
	}
	return true, nil
}

// Backend opens namespaces on a shared connection.
type Backend interface {
	Namespace(name string) Store
	Close() error
}

// PutOptions holds optional write settings.
type PutOptions struct {
	TTL time.Duration
}

// PutOption configures a Put.
type PutOption func(*PutOptions)

// WithTTL expires the key after ttl. Non-positive values mean no expiry.
func WithTTL(ttl time.Duration) PutOption {
	return func(o *PutOptions) {
		o.TTL = ttl
	}
}

func resolvePutOptions(opts []PutOption) PutOptions {
	var resolved PutOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}
	if resolved.TTL < 0 {
		resolved.TTL = 0
	}
	return resolved
}

// GetJSON reads key and decodes it into a T.
func GetJSON[T any](ctx context.Context, store Store, key string) (T, error) {
	var out T
	raw, err := store.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if errUnmarshal := json.Unmarshal(raw, &out); errUnmarshal != nil {
		return out, fmt.Errorf("kv: decode %s: %w", key, errUnmarshal)
	}
	return out, nil
}

// PutJSON encodes value and writes it under key.
func PutJSON(ctx context.Context, store Store, key string, value any, opts ...PutOption) error {
	raw, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("kv: encode %s: %w", key, errMarshal)
	}
	return store.Put(ctx, key, raw, opts...)
}

// LoadAll reads and decodes every value under prefix, skipping keys that
// vanish or fail to decode between List and Get.
func LoadAll[T any](ctx context.Context, store Store, prefix string) (map[string]T, error) {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(keys))
	for _, key := range keys {
		value, errGet := GetJSON[T](ctx, store, key)
		if errGet != nil {
			if errors.Is(errGet, ErrNotFound) {
				continue
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(errGet, &syntaxErr) || errors.As(errGet, &typeErr) {
				continue
			}
			return nil, errGet
		}
		out[key] = value
	}
	return out, nil
}
