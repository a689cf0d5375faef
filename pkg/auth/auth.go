// Package auth defines the authentication provider contract. The provider
// supplies a stable user identifier and a login/logout event stream; an
// empty user id means "no session".
package auth

// Provider notifies subscribers of auth state changes. Subscribe fires fn
// with the current state immediately, then again on every change, and
// returns an unsubscribe function.
type Provider interface {
	Subscribe(fn func(userID string)) (func(), error)
}

// StaticProvider is a provider with one fixed, always-signed-in local user.
type StaticProvider struct {
	UserID string
}

var _ Provider = (*StaticProvider)(nil)

func (p *StaticProvider) Subscribe(fn func(userID string)) (func(), error) {
	fn(p.UserID)
	return func() {}, nil
}
