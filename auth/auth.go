package auth

// TokenValidator validates a bearer token and returns its claims.
// The HTTP middleware depends on this interface rather than on TokenService
// so tests can stub it.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

// TokenValidatorFunc adapts an ordinary function to the TokenValidator interface.
type TokenValidatorFunc func(token string) (*Claims, error)

// ValidateToken implements TokenValidator.
func (f TokenValidatorFunc) ValidateToken(token string) (*Claims, error) {
	return f(token)
}
