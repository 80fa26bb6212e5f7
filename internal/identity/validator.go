// Package identity validates caller and student addresses before they reach
// persisted state. Validation fails closed: anything not recognised as a
// canonical address is rejected.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/btcsuite/btcutil/bech32"
)

var (
	ErrEmpty         = errors.New("address required")
	ErrNotNormalized = errors.New("address not normalized")
	ErrTooLong       = errors.New("address too long")
	ErrWrongPrefix   = errors.New("address has wrong prefix")
	ErrBadLength     = errors.New("address has invalid length")
)

const maxLength = 90

// Validator checks an address and returns its canonical form.
type Validator interface {
	Validate(addr string) (string, error)
}

// New returns a bech32 validator for prefix, or Basic when prefix is empty.
func New(prefix string) Validator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Basic{}
	}
	return Bech32{Prefix: strings.ToLower(prefix)}
}

// Basic accepts any non-empty lowercase identifier of at most 90 characters
// without whitespace. It is meant for development and tests.
type Basic struct{}

func (Basic) Validate(addr string) (string, error) {
	if addr == "" {
		return "", ErrEmpty
	}
	if len(addr) > maxLength {
		return "", ErrTooLong
	}
	for _, r := range addr {
		if unicode.IsSpace(r) || unicode.IsUpper(r) || !unicode.IsPrint(r) {
			return "", ErrNotNormalized
		}
	}
	return addr, nil
}

// Bech32 accepts lowercase bech32 account addresses with the configured
// human-readable prefix and a 20 or 32 byte payload.
type Bech32 struct {
	Prefix string
}

func (v Bech32) Validate(addr string) (string, error) {
	if addr == "" {
		return "", ErrEmpty
	}
	if addr != strings.ToLower(addr) || addr != strings.TrimSpace(addr) {
		return "", ErrNotNormalized
	}
	if len(addr) > maxLength {
		return "", ErrTooLong
	}
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("decode bech32 address: %w", err)
	}
	if hrp != v.Prefix {
		return "", fmt.Errorf("%w: got %q, want %q", ErrWrongPrefix, hrp, v.Prefix)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("decode bech32 address: %w", err)
	}
	if len(decoded) != 20 && len(decoded) != 32 {
		return "", fmt.Errorf("%w: %d bytes", ErrBadLength, len(decoded))
	}
	return addr, nil
}

// Encode builds a bech32 address from raw bytes. Used for seeding and tests.
func Encode(prefix string, raw []byte) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("encode bech32 address: %w", err)
	}
	return bech32.Encode(strings.ToLower(prefix), conv)
}
