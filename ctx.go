package accounts

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithSessionContext sets the resolved Session in the given context. The
// handler chain passes identity explicitly, nothing reads ambient state.
func WithSessionContext(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext extracts the Session from the standard context
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}
