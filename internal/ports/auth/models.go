package auth

// Claims representa la identidad del request (token verificado o header dev).
type Claims struct {
	UserID string
	Email  string
	Name   string

	// Role es informativo ("family", "doctor"). Los permisos sobre un
	// paciente los deciden los grants, no el rol.
	Role string
}
