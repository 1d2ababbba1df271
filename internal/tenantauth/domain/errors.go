package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies every failure the credential core can return.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_ERROR"
	KindNotFound      Kind = "NOT_FOUND"
	KindAuthorization Kind = "AUTHORIZATION_ERROR"
	KindCrypto        Kind = "CRYPTO_ERROR"
	KindPersistence   Kind = "PERSISTENCE_ERROR"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrCrypto        = &Error{Kind: KindCrypto}
	ErrPersistence   = &Error{Kind: KindPersistence}
)

type Error struct {
	Kind       Kind   `json:"error"`
	StatusCode int    `json:"status"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

func newError(kind Kind, status int, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: fmt.Sprintf(format, args...), Err: cause}
}

// ValidationError reports bad input: an unknown permission name, a missing
// required field. Status 406.
func ValidationError(format string, args ...any) *Error {
	return newError(KindValidation, http.StatusNotAcceptable, nil, format, args...)
}

// Conflict is a ValidationError for a duplicate unique value. Status 409.
func Conflict(format string, args ...any) *Error {
	return newError(KindValidation, http.StatusConflict, nil, format, args...)
}

func NotFoundError(format string, args ...any) *Error {
	return newError(KindNotFound, http.StatusNotFound, nil, format, args...)
}

// AuthorizationError is a failed credential check. Status 401.
func AuthorizationError(format string, args ...any) *Error {
	return newError(KindAuthorization, http.StatusUnauthorized, nil, format, args...)
}

// Forbidden is an AuthorizationError for a known but disallowed principal.
func Forbidden(format string, args ...any) *Error {
	return newError(KindAuthorization, http.StatusForbidden, nil, format, args...)
}

// TooManyAttempts is an AuthorizationError raised by throttling.
func TooManyAttempts(format string, args ...any) *Error {
	return newError(KindAuthorization, http.StatusTooManyRequests, nil, format, args...)
}

func CryptoError(cause error, format string, args ...any) *Error {
	return newError(KindCrypto, http.StatusInternalServerError, cause, format, args...)
}

func PersistenceError(cause error, format string, args ...any) *Error {
	return newError(KindPersistence, http.StatusInternalServerError, cause, format, args...)
}

// StatusOf maps any error onto a transport status, 500 when untyped.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// KindOf returns the Kind of err, or "" when it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
