package domain

import "context"

// Calculator turns snapshots into a royalty result. Implementations must be
// free of side effects so a dry run can be repeated safely.
type Calculator interface {
	Calculate(ctx context.Context, req Request) (*Result, error)
}
