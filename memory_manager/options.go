package memorymanager

import (
	"context"
	"time"

	"github.com/w-h-a/rag/memory_manager/providers/kv"
)

type Option func(*Options)

type Options struct {
	KV         kv.KV
	WindowSize int
	TTL        time.Duration
	Context    context.Context
}

func WithKV(store kv.KV) Option {
	return func(o *Options) {
		o.KV = store
	}
}

func WithWindowSize(size int) Option {
	return func(o *Options) {
		o.WindowSize = size
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		WindowSize: 10,             // five exchanges
		TTL:        24 * time.Hour, // refreshed on every append
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
