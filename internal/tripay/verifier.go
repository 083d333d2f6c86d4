package tripay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier authenticates inbound callback bodies. Callers must verify the
// raw bytes before parsing them; a rejected body is never deserialized.
type Verifier struct {
	privateKey []byte
}

func NewVerifier(privateKey string) *Verifier {
	return &Verifier{privateKey: []byte(privateKey)}
}

// Verify recomputes the HMAC-SHA-256 of rawBody and compares it to the
// hex signature from the X-Callback-Signature header in constant time.
func (v *Verifier) Verify(rawBody []byte, signature string) bool {
	if len(rawBody) == 0 || signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, v.privateKey)
	mac.Write(rawBody)

	return hmac.Equal(mac.Sum(nil), provided)
}
