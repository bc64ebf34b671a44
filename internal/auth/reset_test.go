package auth_test

import (
	"testing"
	"time"

	"github.com/daccess-app/backend/internal/auth"
)

func TestResetTokenCodec(t *testing.T) {
	codec := auth.NewResetTokenCodec(15 * time.Minute)

	raw, hash, expiry, err := codec.Issue()
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("raw token length = %d, want 32 hex chars", len(raw))
	}
	if hash != codec.LookupHash(raw) {
		t.Error("issued hash does not match LookupHash of the raw token")
	}
	if remaining := time.Until(expiry); remaining < 14*time.Minute || remaining > 15*time.Minute {
		t.Errorf("expiry %v not within the 15 minute window", remaining)
	}

	t.Run("TrimsWhitespace", func(t *testing.T) {
		if codec.LookupHash("  "+raw+"\n") != hash {
			t.Error("LookupHash should ignore surrounding whitespace")
		}
	})

	t.Run("TokensAreUnique", func(t *testing.T) {
		other, _, _, err := codec.Issue()
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if other == raw {
			t.Error("two issued tokens must not collide")
		}
	})

	t.Run("DefaultTTL", func(t *testing.T) {
		c := auth.NewResetTokenCodec(0)
		if c.TTL != 15*time.Minute {
			t.Errorf("default TTL = %v, want 15m", c.TTL)
		}
	})
}
