package bcnn

import "fmt"

// AuthError means the portal rejected the credentials or never issued
// the session-lifetime cookie. Not retried here: wrong password, a
// portal change and a lockout all look the same from outside.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s (caused by: %v)", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ParseError means an expected piece of HTML structure is missing.
// Either the portal layout changed or the session is not actually
// authenticated; the two are indistinguishable from a response body.
type ParseError struct {
	Page    string
	Missing string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: missing %s", e.Page, e.Missing)
}

// SubmitError means the readings POST came back without the
// confirmation marker. The portal answers 200 either way, so the
// caller must not assume the readings were recorded.
type SubmitError struct {
	Account string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("readings submission for account %s was not confirmed", e.Account)
}
