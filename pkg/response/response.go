package response

// ErrorCode is the stable, client-facing error taxonomy. Codes are part of
// the wire contract with game developers and the payment gateways and must
// not change between releases.
type ErrorCode string

const (
	ErrorCodeInvalidProject   ErrorCode = "INVALID_PROJECT"
	ErrorCodeInvalidUser      ErrorCode = "INVALID_USER"
	ErrorCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
	ErrorCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	ErrorCodeIncorrectAmount  ErrorCode = "INCORRECT_AMOUNT"
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"
)

var codeToMsg = map[ErrorCode]string{
	ErrorCodeInvalidProject:   "Invalid project",
	ErrorCodeInvalidUser:      "Invalid user",
	ErrorCodeInvalidParameter: "Invalid parameter",
	ErrorCodeInvalidSignature: "Invalid signature",
	ErrorCodeIncorrectAmount:  "Incorrect amount",
	ErrorCodeInvalidJSON:      "Invalid JSON",
}

// Message returns the fixed human-readable message for a code.
func Message(code ErrorCode) string {
	if m, ok := codeToMsg[code]; ok {
		return m
	}
	return "Unexpected error"
}

type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorEnvelope is the error payload shape shared by all payment endpoints:
// {"error": {"code": "...", "message": "..."}}.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// Err builds the envelope for a taxonomy code with its fixed message.
func Err(code ErrorCode) *ErrorEnvelope {
	return &ErrorEnvelope{Error: ErrorBody{Code: code, Message: Message(code)}}
}

// FieldErrors is the serializer-style validation payload, e.g.
// {"state": ["Invalid state."]}.
func FieldErrors(field string, msgs ...string) map[string][]string {
	return map[string][]string{field: msgs}
}
