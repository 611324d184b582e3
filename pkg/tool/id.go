package tool

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratePaymentToken returns the opaque redemption token handed to the
// purchasing client. 28 random bytes hex-encoded gives 56 characters, above
// the 40-character floor the client SDK expects.
func GeneratePaymentToken() string {
	buf := make([]byte, 28)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
