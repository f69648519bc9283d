package authorization

import (
	"context"
	"fmt"
)

// Operation is a service call made on behalf of an explicitly passed
// caller. The zero Principal stands for an anonymous caller.
type Operation[Req, Res any] func(ctx context.Context, caller Principal, req Req) (Res, error)

// Guard decorates an Operation with the same signature.
type Guard[Req, Res any] func(next Operation[Req, Res]) Operation[Req, Res]

// Chain wraps base with guards. The first guard is the outermost one.
func Chain[Req, Res any](base Operation[Req, Res], guards ...Guard[Req, Res]) Operation[Req, Res] {
	op := base
	for i := len(guards) - 1; i >= 0; i-- {
		op = guards[i](op)
	}
	return op
}

// OwnershipChecker verifies that a caller acts on their own principal.
type OwnershipChecker struct {
	store PrincipalStore
}

func NewOwnershipChecker(store PrincipalStore) *OwnershipChecker {
	return &OwnershipChecker{store: store}
}

// CheckSelfOwnership looks up the target principal and compares
// usernames exactly. Lookup failures are returned as errors and never
// produce an allowing decision.
func (c *OwnershipChecker) CheckSelfOwnership(ctx context.Context, caller Principal, targetID int64) (Decision, error) {
	target, err := c.store.FindByID(ctx, targetID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load principal %d: %w", targetID, err)
	}
	if caller.Username != target.Username {
		return deny(ReasonSelfMismatch,
			fmt.Sprintf("principal %q may not act on principal %d", caller.Username, targetID),
			stringPtr("self-ownership")), nil
	}
	return allow(fmt.Sprintf("principal %q owns principal %d", caller.Username, targetID), stringPtr("self-ownership")), nil
}

// SelfScoped runs the ownership check before next. target extracts the
// owning principal id from the request. On mismatch next never runs.
func SelfScoped[Req, Res any](checker *OwnershipChecker, target func(Req) int64) Guard[Req, Res] {
	return func(next Operation[Req, Res]) Operation[Req, Res] {
		return func(ctx context.Context, caller Principal, req Req) (Res, error) {
			var zero Res
			decision, err := checker.CheckSelfOwnership(ctx, caller, target(req))
			if err != nil {
				return zero, err
			}
			if err := decision.Err(); err != nil {
				return zero, err
			}
			return next(ctx, caller, req)
		}
	}
}
