package auth

import "fmt"

// AuthenticationError means the token endpoint did not hand out a token.
// Either the endpoint answered with a non-2xx status (StatusCode, Status and
// Body are set) or it could not be reached or understood (Err is set).
type AuthenticationError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed: %d %s: %s", e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
