package passbridge

import "fmt"

// ErrorCode represents conversion error categories.
type ErrorCode string

const (
	ErrCodeMissingRequiredField ErrorCode = "missing_required_field"
	ErrCodeUnsupportedVariant   ErrorCode = "unsupported_variant"
	ErrCodeInvalidArchive       ErrorCode = "invalid_archive"
	ErrCodeInvalidPayload       ErrorCode = "invalid_payload"
	ErrCodePayloadTooLarge      ErrorCode = "payload_too_large"
	ErrCodeRemotePersist        ErrorCode = "remote_persist_failed"
	ErrCodeSigning              ErrorCode = "signing_failed"
	ErrCodeInvalidToken         ErrorCode = "invalid_token"
	ErrCodeInvalidConfig        ErrorCode = "invalid_config"
)

var errorMessages = map[ErrorCode]string{
	ErrCodeMissingRequiredField: "Missing required field",
	ErrCodeUnsupportedVariant:   "Unsupported pass variant",
	ErrCodeInvalidArchive:       "Invalid pass archive",
	ErrCodeInvalidPayload:       "Invalid pass payload",
	ErrCodePayloadTooLarge:      "Payload too large",
	ErrCodeRemotePersist:        "Remote persist failed",
	ErrCodeSigning:              "Signing failed",
	ErrCodeInvalidToken:         "Invalid token",
	ErrCodeInvalidConfig:        "Invalid configuration",
}

// Error wraps conversion errors with a stable code and message. Field is
// set for ErrCodeMissingRequiredField and names the semantic field.
type Error struct {
	Code    ErrorCode
	Message string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Field != "" {
		base = fmt.Sprintf("%s %q", base, e.Field)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func missingField(field string) error {
	return &Error{
		Code:    ErrCodeMissingRequiredField,
		Message: errorMessages[ErrCodeMissingRequiredField],
		Field:   field,
		Err:     fmt.Errorf("configure a hint named %q that points at the archive field label", field),
	}
}
