package domain

// Identity is a verified caller.
type Identity struct {
	UID string
	// Provider names the verifier that accepted the token.
	Provider string
}
