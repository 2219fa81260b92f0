package rbac

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ResolverStore reads the permission universe and role grants.
type ResolverStore interface {
	PermissionUniverse(ctx context.Context) ([]Pair, error)
	RolePermissionPairs(ctx context.Context, roleID int64) ([]Pair, error)
}

// Resolver computes dense permission matrices.
type Resolver struct {
	store ResolverStore
}

// NewResolver constructs a Resolver.
func NewResolver(store ResolverStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveForRole returns the matrix for roleID. A nil roleID yields an
// all-false matrix over the full universe.
func (r *Resolver) ResolveForRole(ctx context.Context, roleID *int64) (Matrix, error) {
	var universe, granted []Pair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pairs, err := r.store.PermissionUniverse(gctx)
		if err != nil {
			return fmt.Errorf("rbac: permission universe: %w", err)
		}
		universe = pairs
		return nil
	})
	if roleID != nil {
		id := *roleID
		g.Go(func() error {
			pairs, err := r.store.RolePermissionPairs(gctx, id)
			if err != nil {
				return fmt.Errorf("rbac: role %d permissions: %w", id, err)
			}
			granted = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matrix := NewMatrix(universe)
	for _, p := range granted {
		matrix.Grant(p)
	}
	return matrix, nil
}
