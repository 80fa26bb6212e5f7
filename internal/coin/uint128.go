package coin

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned when a value does not fit in 128 bits.
var ErrOverflow = errors.New("coin: amount exceeds 128 bits")

// Uint128 is an unsigned amount bounded to 128 bits. It encodes as a decimal
// string in JSON and in the database.
type Uint128 struct {
	v uint256.Int
}

// NewUint128 returns the amount for v.
func NewUint128(v uint64) Uint128 {
	var u Uint128
	u.v.SetUint64(v)
	return u
}

// ParseUint128 parses a base-10 amount.
func ParseUint128(s string) (Uint128, error) {
	var u Uint128
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return u, fmt.Errorf("coin: amount required")
	}
	if trimmed[0] == '+' || trimmed[0] == '-' {
		return u, fmt.Errorf("coin: invalid amount %q", s)
	}
	if err := u.v.SetFromDecimal(trimmed); err != nil {
		return Uint128{}, fmt.Errorf("coin: invalid amount %q: %w", s, err)
	}
	if u.v.BitLen() > 128 {
		return Uint128{}, ErrOverflow
	}
	return u, nil
}

// MustParseUint128 is ParseUint128 for constants; it panics on error.
func MustParseUint128(s string) Uint128 {
	u, err := ParseUint128(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u Uint128) IsZero() bool { return u.v.IsZero() }

func (u Uint128) Cmp(other Uint128) int { return u.v.Cmp(&other.v) }

func (u Uint128) String() string { return u.v.Dec() }

func (u Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON accepts either a decimal string or a JSON number.
func (u *Uint128) UnmarshalJSON(data []byte) error {
	if u == nil {
		return fmt.Errorf("coin: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		parsed, err := ParseUint128(s)
		if err != nil {
			return err
		}
		*u = parsed
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err == nil {
		parsed, err := ParseUint128(num.String())
		if err != nil {
			return err
		}
		*u = parsed
		return nil
	}
	return fmt.Errorf("coin: expected string or number, got %s", string(data))
}

// Value implements driver.Valuer.
func (u Uint128) Value() (driver.Value, error) {
	return u.String(), nil
}

// Scan implements sql.Scanner.
func (u *Uint128) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*u = Uint128{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("coin: negative amount %d", v)
		}
		*u = NewUint128(uint64(v))
		return nil
	default:
		return fmt.Errorf("coin: cannot scan %T into Uint128", src)
	}
	parsed, err := ParseUint128(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
