package session

import "context"

type contextKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *AdminSession) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session placed by NewContext.
func FromContext(ctx context.Context) (*AdminSession, bool) {
	s, ok := ctx.Value(contextKey{}).(*AdminSession)
	return s, ok && s != nil
}
