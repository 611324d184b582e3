package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

const headerScheme = "Signature"

var ErrMalformedHeader = errors.New("malformed signature header")

// ParseHeader extracts the hex digest from an "Authorization: Signature <hex>"
// header. Any other scheme is an authentication failure.
func ParseHeader(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != headerScheme {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}

// HMACSHA256 signs message with secret and returns the lowercase hex digest.
func HMACSHA256(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// SHA1WithSecret computes sha1(body + secret), the Xsolla webhook scheme.
func SHA1WithSecret(body []byte, secret string) string {
	h := sha1.New()
	h.Write(body)
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalQuery builds the signing message for query-string endpoints: the
// concatenation of all query parameter values sorted lexicographically.
func CanonicalQuery(values url.Values) []byte {
	var all []string
	for _, vs := range values {
		all = append(all, vs...)
	}
	sort.Strings(all)
	return []byte(strings.Join(all, ""))
}

// VerifyBody checks an HMAC-SHA256 signature header over the raw body bytes.
func VerifyBody(body []byte, header, secret string) bool {
	got, err := ParseHeader(header)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(got), []byte(HMACSHA256(body, secret)))
}

// VerifyQuery checks an HMAC-SHA256 signature header over the canonical query.
func VerifyQuery(values url.Values, header, secret string) bool {
	got, err := ParseHeader(header)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(got), []byte(HMACSHA256(CanonicalQuery(values), secret)))
}

// VerifyXsolla checks the Xsolla webhook signature: sha1(rawBody + secret)
// against the header value.
func VerifyXsolla(body []byte, header, secret string) bool {
	got, err := ParseHeader(header)
	if err != nil {
		return false
	}
	return got == SHA1WithSecret(body, secret)
}
