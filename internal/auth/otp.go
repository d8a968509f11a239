package auth

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/goliatone/go-errors"
)

// OTPTTL is the verification window for admin registration codes.
const OTPTTL = 10 * time.Minute

const (
	otpMin  = 100000
	otpSpan = 900000
)

// GenerateOTP produces a 6 digit numeric code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate OTP")
	}
	return big.NewInt(otpMin + n.Int64()).String(), nil
}
