package forum

import "errors"

// Error kinds. Every error returned by the domain layer wraps one of these,
// so callers can branch with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication error")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Error carries a user facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// ValidationError reports malformed or missing input.
func ValidationError(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

// AuthError reports bad credentials or a bad token.
func AuthError(msg string) error { return &Error{Kind: ErrAuth, Message: msg} }

// ForbiddenError reports an authenticated caller that does not own the resource.
func ForbiddenError(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

// NotFoundError reports an unknown id.
func NotFoundError(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

// ConflictError reports a uniqueness violation.
func ConflictError(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

// Message returns the user facing text of err, falling back to err.Error().
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
