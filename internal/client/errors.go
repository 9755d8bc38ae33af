package client

import "fmt"

// The error taxonomy. Every operation of this package fails with exactly one
// of these types, so callers can branch on the recovery path: validation and
// quota errors are user-actionable, auth errors require a fresh login,
// transient errors invite a manual retry, and not-ready errors mean the
// resource has not reached the required state yet.

// ValidationError is a local, pre-network rejection. No request was issued.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// AuthError means the bearer token was missing, invalid, or expired. The
// client's token is cleared before this is returned; the user must log in
// again rather than retry.
type AuthError struct {
	Detail string
}

func (e *AuthError) Error() string {
	return "authentication required: " + e.Detail
}

// QuotaExceededError means the server refused the action because the
// subscription's usage limit is reached. Upgrading the plan is the way out.
type QuotaExceededError struct {
	Detail string
}

func (e *QuotaExceededError) Error() string {
	return "quota exceeded: " + e.Detail
}

// TransientNetworkError covers transport failures and server-side 5xx
// responses. The operation may succeed if repeated; this package never
// retries it automatically outside the payment poller.
type TransientNetworkError struct {
	Err error
}

func (e *TransientNetworkError) Error() string {
	return "transient network error: " + e.Err.Error()
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// NotReadyError means the action targeted a resource that has not reached
// the state the action requires, such as downloading a conversion that is
// still processing.
type NotReadyError struct {
	Resource string
	State    string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s not ready: state %s", e.Resource, e.State)
}
