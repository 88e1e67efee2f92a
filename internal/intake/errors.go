package intake

import "errors"

// ValidationError is a client-side upload problem. Its message is safe to
// show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrNoFilePart          error = &ValidationError{Message: "No file provided"}
	ErrNoFilename          error = &ValidationError{Message: "No file selected"}
	ErrExtensionNotAllowed error = &ValidationError{Message: "File type not allowed"}
	ErrTooLarge            error = &ValidationError{Message: "File too large"}
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
