package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// WipeByteArray zeroes b in place. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// MakeNumericCode returns a uniformly distributed decimal code of the given
// number of digits, zero-padded.
func MakeNumericCode(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
