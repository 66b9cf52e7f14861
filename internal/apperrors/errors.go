package apperrors

import "fmt"

// ErrValidation represents a malformed or incomplete request, such as an
// episodic search missing its season or episode number, or a file identifier
// without a session separator.
type ErrValidation struct {
	Reason string
}

// Error implements the error interface.
func (e *ErrValidation) Error() string {
	return e.Reason
}

// Is allows for error checking with errors.Is().
func (e *ErrValidation) Is(target error) bool {
	_, ok := target.(*ErrValidation)
	return ok
}

// NewValidationError creates a new ErrValidation.
func NewValidationError(reason string) *ErrValidation {
	return &ErrValidation{Reason: reason}
}

// ErrNotFound represents an error when a requested resource is not found.
// Hint, when set, carries advice for the caller (e.g. "try searching again"
// after a search session has expired).
type ErrNotFound struct {
	Resource string
	ID       interface{}
	Hint     string
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	msg := fmt.Sprintf("%s not found", e.Resource)
	if e.ID != nil {
		msg = fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	if e.Hint != "" {
		return fmt.Sprintf("%s, %s", msg, e.Hint)
	}
	return msg
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// NewStaleSessionError is returned when a download references a search
// session that has expired or was evicted. The metadata needed to persist
// the subtitle is gone, so the caller must search again.
func NewStaleSessionError(sessionKey string) *ErrNotFound {
	return &ErrNotFound{
		Resource: "search session",
		ID:       sessionKey,
		Hint:     "invalid identifier, retry search",
	}
}

// ErrUpstream represents a failed call to a specific subtitle provider.
type ErrUpstream struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ErrUpstream) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s returned status %d", e.Provider, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s failed", e.Provider)
}

// Unwrap returns the underlying error, if any.
func (e *ErrUpstream) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrUpstream) Is(target error) bool {
	_, ok := target.(*ErrUpstream)
	return ok
}

// NewUpstreamError creates a new ErrUpstream wrapping a transport-level failure.
func NewUpstreamError(provider string, err error) *ErrUpstream {
	return &ErrUpstream{Provider: provider, Err: err}
}

// NewUpstreamStatusError creates a new ErrUpstream for a non-success HTTP status.
func NewUpstreamStatusError(provider string, statusCode int) *ErrUpstream {
	return &ErrUpstream{Provider: provider, StatusCode: statusCode}
}

// ErrAuth represents a failed login exchange with a provider.
type ErrAuth struct {
	Provider string
	Reason   string
}

// Error implements the error interface.
func (e *ErrAuth) Error() string {
	return fmt.Sprintf("authentication with %s failed: %s", e.Provider, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrAuth) Is(target error) bool {
	_, ok := target.(*ErrAuth)
	return ok
}

// NewAuthError creates a new ErrAuth.
func NewAuthError(provider, reason string) *ErrAuth {
	return &ErrAuth{Provider: provider, Reason: reason}
}

// ErrInternal represents a persistence or infrastructure failure that is not
// the caller's fault.
type ErrInternal struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ErrInternal) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Op)
}

// Unwrap returns the underlying error, if any.
func (e *ErrInternal) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrInternal) Is(target error) bool {
	_, ok := target.(*ErrInternal)
	return ok
}

// NewInternalError creates a new ErrInternal.
func NewInternalError(op string, err error) *ErrInternal {
	return &ErrInternal{Op: op, Err: err}
}
