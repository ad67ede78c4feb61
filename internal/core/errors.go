package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUsernameTaken     = "username_taken"
	ErrCodeStoreUnavailable  = "store_unavailable"
	ErrCodeUnknownConnection = "unknown_connection"
	ErrCodeBadRequest        = "bad_request"
)

var (
	ErrUsernameTaken     = errors.New("username taken")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrBadRequest        = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel so callers can use errors.Is.
func (e *CoreError) Unwrap() error {
	return e.Err
}

func coreError(code, msg string, sentinel error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: sentinel}
}

// AsCoreError converts err into a CoreError, classifying anything
// unrecognised as a store failure.
func AsCoreError(err error) *CoreError {
	if err == nil {
		return nil
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return coreError(ErrCodeStoreUnavailable, "service unavailable, try again", ErrStoreUnavailable)
}
