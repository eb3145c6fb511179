// Package pairing generates and hashes the one-time codes that link a
// Telegram account to this daemon.
package pairing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Ambiguous characters (0, O, 1, I) are excluded.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TTL is how long a generated code stays valid.
const TTL = 5 * time.Minute

// GenerateCode returns a new 8-character code formatted XXXX-XXXX.
func GenerateCode() string {
	buf := make([]byte, 8)
	rand.Read(buf)

	var sb strings.Builder
	for i, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
		if i == 3 {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// HashCode normalizes a code (dashes stripped, uppercased) and returns its
// hex-encoded SHA-256. Only hashes are ever stored.
func HashCode(code string) string {
	normalized := strings.ToUpper(strings.ReplaceAll(code, "-", ""))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
