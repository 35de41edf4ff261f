package lockgate

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpVerifier checks time-based one-time codes against a per-user shared
// secret. It relies on the algorithm's own step window for clock tolerance;
// no additional skew handling happens elsewhere in the flow.
type totpVerifier struct {
	config TOTPConfig
}

func newTOTPVerifier(cfg TOTPConfig) *totpVerifier {
	return &totpVerifier{config: cfg}
}

func (v *totpVerifier) opts() totp.ValidateOpts {
	digits := otp.DigitsSix
	if v.config.Digits == 8 {
		digits = otp.DigitsEight
	}
	return totp.ValidateOpts{
		Period:    uint(v.config.Period),
		Skew:      v.config.Skew,
		Digits:    digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Verify reports whether token matches the code for secret at now. Any
// validation error maps to a plain mismatch.
func (v *totpVerifier) Verify(secret, token string, now time.Time) bool {
	token = strings.TrimSpace(token)
	if token == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(token, secret, now, v.opts())
	return err == nil && ok
}

// Provision generates a fresh shared secret and otpauth:// URI for
// enrolling an account in two-factor auth. The secret must be stored on the
// user record by the host before the next login.
func (v *totpVerifier) Provision(account string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.config.Issuer,
		AccountName: account,
		Period:      uint(v.config.Period),
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}
