package types

import "fmt"

// AuthRequiredError is a terminal scrape failure: the session is not (or no
// longer) authenticated. Callers should prompt the user to log in
// interactively and retry rather than treating it as a plain error.
type AuthRequiredError struct {
	Reason string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authentication required: %s", e.Reason)
}

// NetworkError is a terminal scrape failure caused by the transport rather
// than the session.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
