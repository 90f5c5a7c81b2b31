package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeNetwork      Code = "NETWORK_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
)

type Metadata struct {
	AuthExpiry      bool
	Transient       bool
	FallbackMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		AuthExpiry:      false,
		Transient:       false,
		FallbackMessage: "validation failed",
	},
	CodeUnauthorized: {
		AuthExpiry:      true,
		Transient:       false,
		FallbackMessage: "authentication required",
	},
	CodeForbidden: {
		AuthExpiry:      true,
		Transient:       false,
		FallbackMessage: "access denied",
	},
	CodeNotFound: {
		AuthExpiry:      false,
		Transient:       false,
		FallbackMessage: "resource not found",
	},
	CodeNetwork: {
		AuthExpiry:      false,
		Transient:       true,
		FallbackMessage: "network error",
	},
	CodeDependency: {
		AuthExpiry:      false,
		Transient:       true,
		FallbackMessage: "service unavailable",
	},
	CodeInternal: {
		AuthExpiry:      false,
		Transient:       false,
		FallbackMessage: "internal error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// CodeForStatus maps an HTTP response status to the domain error code.
func CodeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 400 && status < 500:
		return CodeValidation
	case status >= 500:
		return CodeDependency
	default:
		return CodeInternal
	}
}

// CodeOf returns the code carried by err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsAuthExpiry reports whether the error indicates an expired or rejected credential.
func IsAuthExpiry(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).AuthExpiry
}

type Error struct {
	code    Code
	message string
	status  int
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// Message returns the user-facing message, falling back to the code default.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.message == "" {
		return MetadataFor(e.code).FallbackMessage
	}
	return e.message
}

// Status returns the HTTP status attached to the error, zero when the
// failure never produced a response.
func (e *Error) Status() int {
	if e == nil {
		return 0
	}
	return e.status
}

func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	e.status = status
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.Message())
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// MessageOr extracts the user-facing message from any error, using the
// fallback for errors outside the domain taxonomy.
func MessageOr(err error, fallback string) string {
	if typed := As(err); typed != nil {
		return typed.Message()
	}
	return fallback
}
