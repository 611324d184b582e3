package signature

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	digest, err := ParseHeader("Signature deadbeef")
	require.NoError(t, err)
	require.Equal(t, "deadbeef", digest)

	for _, header := range []string{
		"",
		"deadbeef",
		"Bearer deadbeef",
		"Signature",
		"Signature deadbeef extra",
	} {
		_, err := ParseHeader(header)
		require.ErrorIs(t, err, ErrMalformedHeader, "header %q", header)
	}
}

func TestVerifyBodyRoundTrip(t *testing.T) {
	body := []byte(`{"game_sid":"sid-1","purchase":{"amount":"100.3"}}`)
	secret := "game-secret"

	header := "Signature " + HMACSHA256(body, secret)
	require.True(t, VerifyBody(body, header, secret))
}

func TestVerifyBodyRejectsMutation(t *testing.T) {
	body := []byte(`{"game_sid":"sid-1","purchase":{"amount":"100.3"}}`)
	secret := "game-secret"
	header := "Signature " + HMACSHA256(body, secret)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		require.False(t, VerifyBody(mutated, header, secret), "flip at byte %d", i)
	}
}

func TestVerifyBodyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"game_sid":"sid-1"}`)
	header := "Signature " + HMACSHA256(body, "game-secret")

	require.False(t, VerifyBody(body, header, "other-secret"))
	require.False(t, VerifyBody(body, HMACSHA256(body, "game-secret"), "game-secret"))
}

func TestCanonicalQuerySortsValues(t *testing.T) {
	a := url.Values{"app_id": {"game-1"}, "transaction_id": {"42"}}
	b := url.Values{"transaction_id": {"42"}, "app_id": {"game-1"}}

	require.Equal(t, CanonicalQuery(a), CanonicalQuery(b))
	require.Equal(t, []byte("42game-1"), CanonicalQuery(a))
}

func TestVerifyQueryRoundTrip(t *testing.T) {
	values := url.Values{"app_id": {"game-1"}, "transaction_id": {"42"}}
	secret := "game-secret"

	header := "Signature " + HMACSHA256(CanonicalQuery(values), secret)
	require.True(t, VerifyQuery(values, header, secret))

	values.Set("transaction_id", "43")
	require.False(t, VerifyQuery(values, header, secret))
}

func TestVerifyXsolla(t *testing.T) {
	body := []byte(`{"notification_type":"payment"}`)
	secret := "project-secret"

	header := "Signature " + SHA1WithSecret(body, secret)
	require.True(t, VerifyXsolla(body, header, secret))
	require.False(t, VerifyXsolla(body, header, "other-secret"))
	require.False(t, VerifyXsolla(append(body, ' '), header, secret))
	require.False(t, VerifyXsolla(body, SHA1WithSecret(body, secret), secret))
}
