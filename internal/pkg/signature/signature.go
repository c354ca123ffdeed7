// Package signature holds the HMAC helpers shared by webhook verifiers.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HMACHex returns the hex encoded HMAC-SHA256 of payload.
func HMACHex(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares two hex digests in constant time. Case is ignored.
func Equal(expected, actual string) bool {
	if expected == "" || actual == "" {
		return false
	}
	return hmac.Equal([]byte(strings.ToLower(expected)), []byte(strings.ToLower(strings.TrimSpace(actual))))
}

// Verify reports whether header carries the HMAC of body under secret.
// An empty secret rejects everything.
func Verify(secret string, body []byte, header string) bool {
	if secret == "" {
		return false
	}
	return Equal(HMACHex(secret, body), header)
}
