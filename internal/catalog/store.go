package catalog

import (
	"context"
	"errors"
	"time"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

var ErrMalformedData = errors.New("malformed product data")

// Store persists the whole product collection. Get and Update report a
// missing id through the bool result, not an error. Delete of a missing id
// is a no-op.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, bool, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id string, patch Patch) (Product, bool, error)
	Delete(ctx context.Context, id string) error
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func normalize(p Product) Product {
	if p.ImagenesExtra == nil {
		p.ImagenesExtra = []string{}
	}
	return p
}
