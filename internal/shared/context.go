package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// SocietyFromContext returns the society selected in the request session.
func SocietyFromContext(ctx context.Context) (int64, error) {
	id, ok := SessionFromContext(ctx).Society()
	if !ok {
		return 0, ErrNoSociety
	}
	return id, nil
}

// ActorFromContext returns the signed-in user id, or zero.
func ActorFromContext(ctx context.Context) int64 {
	id, _ := SessionFromContext(ctx).UserID()
	return id
}
