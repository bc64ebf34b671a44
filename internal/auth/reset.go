package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// resetTokenBytes is the entropy of a raw reset token. 16 bytes hex-encode
// to the 32-character code the app shows in the reset email.
const resetTokenBytes = 16

// ResetTokenCodec issues password-reset tokens. Only the sha256 lookup hash
// of a token is ever persisted; the raw token goes to the user exactly once.
// The fast hash is deliberate: the token is high-entropy and single-use, so
// the slow password hasher would buy nothing but latency, and a
// deterministic digest lets the store be queried by hash directly.
type ResetTokenCodec struct {
	TTL time.Duration
}

// NewResetTokenCodec creates a codec. TTL <= 0 falls back to 15 minutes.
func NewResetTokenCodec(ttl time.Duration) *ResetTokenCodec {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResetTokenCodec{TTL: ttl}
}

// Issue generates a fresh raw token, its lookup hash, and the expiry of the
// resulting ticket.
func (c *ResetTokenCodec) Issue() (raw, tokenHash string, expiry time.Time, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, fmt.Errorf("reset token generation failed: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, c.LookupHash(raw), time.Now().Add(c.TTL), nil
}

// LookupHash derives the deterministic store key for a raw token. The token
// is trimmed first so codes copied out of an email with stray whitespace
// still match.
func (c *ResetTokenCodec) LookupHash(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
