// Package oauth implements the GitHub authorization-code flow: CSRF
// state handling, the local callback server, and the browser-driven
// flow that turns user consent into an access token.
package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

const (
	// stateLen is the generated CSRF state length.
	stateLen = 32

	// Accepted bounds for incoming state values. Anything outside is
	// rejected before the constant-time comparison even runs.
	stateMinLen = 16
	stateMaxLen = 128
)

const stateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewState generates a 32-character alphanumeric CSRF state using the
// cryptographic RNG.
func NewState() (string, error) {
	out := make([]byte, stateLen)

	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(stateAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generating state: %w", err)
		}

		out[i] = stateAlphabet[idx.Int64()]
	}

	return string(out), nil
}

// ValidateStateFormat checks that a state value is 16 to 128
// alphanumeric characters. Format checking happens before any value
// comparison so malformed input never reaches the matcher.
func ValidateStateFormat(state string) error {
	if len(state) < stateMinLen || len(state) > stateMaxLen {
		return fmt.Errorf("state must be %d-%d characters, got %d", stateMinLen, stateMaxLen, len(state))
	}

	for _, r := range state {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return fmt.Errorf("state contains non-alphanumeric character %q", r)
		}
	}

	return nil
}

// StatesEqual compares two state values in constant time.
func StatesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
