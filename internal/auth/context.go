package auth

import "context"

type contextKey struct{}

// Identity is the authenticated caller, threaded through context into every
// engine call. The engine never refreshes credentials itself.
type Identity struct {
	MemberID  int64
	Role      string
	SessionID int64
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func MemberID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.MemberID
}

func IsGuardian(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == "guardian"
}

func IsDependent(ctx context.Context) bool {
	id, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == "dependent"
}
