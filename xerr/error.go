// Package xerr defines the connection error taxonomy shared by every
// component of the camlink client. All failures crossing the public API are
// values of *Error; nothing is thrown past the API boundary.
package xerr

import "fmt"

// Code classifies a connection failure. The set is closed: every failure a
// component can detect maps onto exactly one code.
type Code uint8

const (
	CodeUnknown Code = iota
	CodeTimeout
	CodeConnectionRefused
	CodeConnectionRejected
	CodeAuthenticationFailed
	CodeVersionIncompatible
	CodeServerVersionTooLow
	CodeServerError
)

var codeMap = map[Code]string{
	CodeUnknown:              "unknown error",
	CodeTimeout:              "timeout",
	CodeConnectionRefused:    "connection refused",
	CodeConnectionRejected:   "connection rejected",
	CodeAuthenticationFailed: "authentication failed",
	CodeVersionIncompatible:  "version incompatible",
	CodeServerVersionTooLow:  "server version too low",
	CodeServerError:          "server error",
}

func (c Code) String() string {
	return codeMap[c]
}

// AuthClass reports whether the code belongs to the authentication class.
// Auth-class failures are terminal for the current connection chain: retrying
// cannot succeed without external action, so they suppress reconnection.
func (c Code) AuthClass() bool {
	switch c {
	case CodeAuthenticationFailed, CodeVersionIncompatible, CodeServerVersionTooLow:
		return true
	default:
		return false
	}
}

// Error is the structured connection error retained by the state machine and
// returned from the public API.
type Error struct {
	Code               Code
	Message            string
	Details            string
	ClientVersion      string
	ServerVersion      string
	MinRequiredVersion string
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap converts an arbitrary error into an *Error with the given code,
// keeping the original text as details.
func Wrap(code Code, message string, err error) *Error {
	e := &Error{Code: code, Message: message}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	if e.Details == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
}

// AuthClass reports whether the error suppresses reconnection. Safe on nil.
func (e *Error) AuthClass() bool {
	return e != nil && e.Code.AuthClass()
}

// From returns err as an *Error, wrapping foreign errors under CodeUnknown.
// Returns nil for nil.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return &Error{Code: CodeUnknown, Message: err.Error()}
}
