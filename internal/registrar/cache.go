package registrar

import (
	"context"
	"doc-registry/internal/model"
	"doc-registry/internal/registry"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Cached remembers registered accounts for ttl so that repeated backups by
// the same owner skip the remote lookup. Negative answers and errors are
// never cached.
type Cached struct {
	next     registry.Registrar
	accounts *cache.Cache
}

func NewCached(next registry.Registrar, ttl time.Duration) Cached {
	return Cached{
		next:     next,
		accounts: cache.New(ttl, 2*ttl),
	}
}

func (c Cached) IsRegistered(ctx context.Context, account model.Account) (bool, error) {
	if _, ok := c.accounts.Get(account.String()); ok {
		return true, nil
	}

	registered, err := c.next.IsRegistered(ctx, account)
	if err != nil || !registered {
		return registered, err
	}

	c.accounts.SetDefault(account.String(), struct{}{})
	return true, nil
}
