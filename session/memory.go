package session

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// MemoryRepository keeps sessions in process memory. Sessions are lost on
// restart; suitable for a single instance and for tests.
type MemoryRepository struct {
	c *cache.Cache
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{c: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (r *MemoryRepository) Save(_ context.Context, rec Record) (string, error) {
	token := newToken()
	// The cache expiry only bounds memory; validity is decided by Manager.
	r.c.Set(token, rec, TTL(rec.Kind))
	return token, nil
}

func (r *MemoryRepository) Load(_ context.Context, token string) (Record, error) {
	v, ok := r.c.Get(token)
	if !ok {
		return Record{}, ErrNotFound
	}
	rec, ok := v.(Record)
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepository) Delete(_ context.Context, token string) error {
	r.c.Delete(token)
	return nil
}

func (r *MemoryRepository) InvalidateIdentity(_ context.Context, kind Kind, identity string) error {
	for token, item := range r.c.Items() {
		if rec, ok := item.Object.(Record); ok && rec.Kind == kind && rec.Identity == identity {
			r.c.Delete(token)
		}
	}
	return nil
}
