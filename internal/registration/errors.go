package registration

import "fmt"

// ValidationError reports malformed or missing client input. It is
// detected at the boundary and never reaches the store.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// AlreadyRegisteredError is the business outcome of registering an
// email that already has an identity. It carries the existing
// identity's ID so callers can branch on it; it is not a fatal error.
type AlreadyRegisteredError struct {
	IdentityID string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("email already registered to identity %s", e.IdentityID)
}
