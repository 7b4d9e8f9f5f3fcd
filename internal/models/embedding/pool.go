package embedding

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// DefaultPooler bounds the number of concurrent outbound embedding
// requests a single BatchEmbed call fans out, so a large ingestion
// batch can't open thousands of sockets at once.
type DefaultPooler struct {
	pool *ants.Pool
}

// NewDefaultPooler creates a bounded worker pool of the given size
// (falls back to 16 if size <= 0).
func NewDefaultPooler(size int) (*DefaultPooler, error) {
	if size <= 0 {
		size = 16
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &DefaultPooler{pool: p}, nil
}

// BatchEmbedWithPool embeds each text concurrently through the bounded
// pool, preserving input order in the result slice.
func (d *DefaultPooler) BatchEmbedWithPool(ctx context.Context, model Embedder, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		i, text := i, text
		wg.Add(1)
		err := d.pool.Submit(func() {
			defer wg.Done()
			vec, err := model.Embed(ctx, text)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = vec
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Release tears down the underlying worker pool.
func (d *DefaultPooler) Release() {
	d.pool.Release()
}
