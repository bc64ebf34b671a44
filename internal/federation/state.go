package federation

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// stateTTL bounds how long a login redirect may sit between the authorize
// redirect and the provider callback.
const stateTTL = 10 * time.Minute

// StateCodec signs the OAuth2 state parameter. The state carries the app's
// post-login deep link through the provider round trip, so it must be both
// tamper-proof (it decides where tokens get redirected) and stateless (the
// callback may land on any instance). All providers use the same mechanism;
// no cookies are involved.
type StateCodec struct {
	secret          []byte
	defaultRedirect string
}

func NewStateCodec(secret, defaultRedirect string) *StateCodec {
	return &StateCodec{secret: []byte(secret), defaultRedirect: defaultRedirect}
}

type statePayload struct {
	Redirect string `json:"r"`
	Nonce    string `json:"n"`
	Expiry   int64  `json:"e"`
}

// Encode builds a signed state embedding the redirect deep link. An empty
// redirect falls back to the configured default.
func (c *StateCodec) Encode(redirect string) (string, error) {
	if redirect == "" {
		redirect = c.defaultRedirect
	}
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating state nonce: %w", err)
	}
	payload, err := json.Marshal(statePayload{
		Redirect: redirect,
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
		Expiry:   time.Now().Add(stateTTL).Unix(),
	})
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + c.sign(body), nil
}

// Decode verifies a state and returns the redirect deep link it carries.
func (c *StateCodec) Decode(state string) (string, error) {
	body, sig, found := strings.Cut(state, ".")
	if !found || !hmac.Equal([]byte(sig), []byte(c.sign(body))) {
		return "", ErrInvalidAuthState
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", ErrInvalidAuthState
	}
	var payload statePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", ErrInvalidAuthState
	}
	if time.Now().Unix() > payload.Expiry {
		return "", ErrInvalidAuthState
	}
	if payload.Redirect == "" {
		return c.defaultRedirect, nil
	}
	return payload.Redirect, nil
}

func (c *StateCodec) sign(body string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
