package identity

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBasicValidator(t *testing.T) {
	v := New("")
	addr, err := v.Validate("student_1")
	require.NoError(t, err)
	require.Equal(t, "student_1", addr)

	_, err = v.Validate("")
	require.ErrorIs(t, err, ErrEmpty)
	addr, err = v.Validate("s1")
	require.NoError(t, err)
	require.Equal(t, "s1", addr)
	_, err = v.Validate("Student_1")
	require.ErrorIs(t, err, ErrNotNormalized)
	_, err = v.Validate(" student")
	require.ErrorIs(t, err, ErrNotNormalized)
	_, err = v.Validate(strings.Repeat("a", 91))
	require.ErrorIs(t, err, ErrTooLong)
}

func TestBech32Validator(t *testing.T) {
	good, err := Encode("cosmos", bytes.Repeat([]byte{0x11}, 20))
	require.NoError(t, err)
	contract, err := Encode("cosmos", bytes.Repeat([]byte{0x22}, 32))
	require.NoError(t, err)
	other, err := Encode("osmo", bytes.Repeat([]byte{0x11}, 20))
	require.NoError(t, err)
	short, err := Encode("cosmos", bytes.Repeat([]byte{0x11}, 8))
	require.NoError(t, err)

	v := New("COSMOS")
	_, ok := v.(Bech32)
	require.True(t, ok)

	addr, err := v.Validate(good)
	require.NoError(t, err)
	require.Equal(t, good, addr)

	_, err = v.Validate(contract)
	require.NoError(t, err)

	_, err = v.Validate(strings.ToUpper(good))
	require.ErrorIs(t, err, ErrNotNormalized)

	_, err = v.Validate(other)
	require.ErrorIs(t, err, ErrWrongPrefix)

	_, err = v.Validate(short)
	require.ErrorIs(t, err, ErrBadLength)

	// flip the last checksum character
	tampered := good[:len(good)-1] + string(flip(good[len(good)-1]))
	_, err = v.Validate(tampered)
	require.Error(t, err)

	_, err = v.Validate("student_1")
	require.Error(t, err)
}

func flip(c byte) byte {
	if c == 'q' {
		return 'p'
	}
	return 'q'
}
