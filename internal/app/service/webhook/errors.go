package webhook

import (
	"fmt"

	"github.com/agriev/we-sdk-payments/pkg/response"
)

// Error carries the taxonomy code a failed notification maps to at the HTTP
// boundary. The wrapped detail is for server-side logs only and never leaks
// to the gateway.
type Error struct {
	Code   response.ErrorCode
	detail string
}

func Errf(code response.ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.detail)
}
