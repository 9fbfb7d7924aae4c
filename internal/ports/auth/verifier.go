package auth

import "context"

// AuthVerifier valida un bearer token y devuelve la identidad del usuario
// (familia o médico). Implementación real: adapters/auth/jwtauth.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// VerifierFunc adapta una función a AuthVerifier.
type VerifierFunc func(ctx context.Context, token string) (Claims, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Claims, error) {
	return f(ctx, token)
}
