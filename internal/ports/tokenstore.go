package ports

import "context"

// TokenStore is an optional idTag authorization source. If the dispatcher
// is constructed without one, Authorize defaults to accept-all; if present,
// an unknown idTag is rejected.
type TokenStore interface {
	IsKnownAndActive(ctx context.Context, idTag string) (bool, error)
}
