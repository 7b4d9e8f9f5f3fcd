// Package host wires Lucy's cross-cutting dependencies (worker pools,
// shared clients) behind a single explicit struct, passed down to
// every constructor that needs one. This replaces the reflection-based
// DI container the server used to reach for: every dependency a type
// needs is a field on Host or a constructor argument, never something
// resolved from a global registry at call time.
package host

import (
	"context"

	"github.com/panjf2000/ants/v2"
)

// EmbedderPool bounds the number of concurrent outbound embedding
// requests a single BatchEmbed call fans out, so a large ingestion
// batch can't open thousands of sockets at once. It implements the
// embedding.EmbedderPooler interface via a structural match (no
// import of the embedding package to avoid an import cycle); callers
// pass the embed function directly.
type EmbedderPool struct {
	pool *ants.Pool
}

// NewEmbedderPool creates a bounded goroutine pool with the given
// max concurrency, used for embedding and other fan-out I/O.
func NewEmbedderPool(size int) (*EmbedderPool, error) {
	if size <= 0 {
		size = 16
	}
	p, err := ants.NewPool(size, ants.WithPreAlloc(false))
	if err != nil {
		return nil, err
	}
	return &EmbedderPool{pool: p}, nil
}

// Run submits fn to the bounded pool and blocks until it completes,
// respecting ctx cancellation while waiting for a free worker.
func (p *EmbedderPool) Run(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	submitErr := p.pool.Submit(func() {
		defer close(done)
		fn()
	})
	if submitErr != nil {
		return submitErr
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release tears down the underlying worker pool.
func (p *EmbedderPool) Release() {
	p.pool.Release()
}
