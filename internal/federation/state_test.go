package federation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCodec_RoundTrip(t *testing.T) {
	codec := NewStateCodec("test-secret", "daccess://auth/callback")

	state, err := codec.Encode("exp://192.168.1.5:8081/--/auth")
	require.NoError(t, err)

	redirect, err := codec.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, "exp://192.168.1.5:8081/--/auth", redirect)
}

func TestStateCodec_DefaultRedirect(t *testing.T) {
	codec := NewStateCodec("test-secret", "daccess://auth/callback")

	state, err := codec.Encode("")
	require.NoError(t, err)

	redirect, err := codec.Decode(state)
	require.NoError(t, err)
	assert.Equal(t, "daccess://auth/callback", redirect)
}

func TestStateCodec_RejectsTampering(t *testing.T) {
	codec := NewStateCodec("test-secret", "daccess://auth/callback")

	state, err := codec.Encode("daccess://auth/callback")
	require.NoError(t, err)

	t.Run("FlippedPayloadByte", func(t *testing.T) {
		body, sig, _ := strings.Cut(state, ".")
		tampered := "A" + body[1:] + "." + sig
		_, err := codec.Decode(tampered)
		assert.ErrorIs(t, err, ErrInvalidAuthState)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewStateCodec("other-secret", "daccess://auth/callback")
		_, err := other.Decode(state)
		assert.ErrorIs(t, err, ErrInvalidAuthState)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := codec.Decode("not-a-state")
		assert.ErrorIs(t, err, ErrInvalidAuthState)
	})
}

func TestStateCodec_StatesAreUnique(t *testing.T) {
	codec := NewStateCodec("test-secret", "daccess://auth/callback")

	a, err := codec.Encode("daccess://auth/callback")
	require.NoError(t, err)
	b, err := codec.Encode("daccess://auth/callback")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
