// Package mfa provides the second login factor: TOTP codes from an authenticator app and
// single-use backup codes for when the device is lost.
package mfa

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
)

const (
	period        = 30 // seconds per step
	DefaultWindow = 2  // steps of clock skew tolerated either side
)

// Enrollment is handed to the user once so they can add the account to an authenticator app.
type Enrollment struct {
	Secret string `json:"secret"` // base32
	URI    string `json:"uri"`    // otpauth:// provisioning URI, rendered as a QR code by the client
}

type Verifier struct {
	issuer  string
	window  uint
	nowFunc func() time.Time
}

type VerifierOption func(*Verifier)

func WithNowFunc(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowFunc = now
	}
}

// WithWindow sets how many 30 second steps either side of now are accepted.
func WithWindow(steps uint) VerifierOption {
	return func(v *Verifier) {
		v.window = steps
	}
}

func NewVerifier(issuer string, options ...VerifierOption) *Verifier {
	v := &Verifier{
		issuer: issuer,
		window: DefaultWindow,
	}
	for _, opt := range options {
		opt(v)
	}
	if v.nowFunc == nil {
		v.nowFunc = time.Now
	}
	return v
}

func (v *Verifier) GenerateSecret(accountName string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Verifier.GenerateSecret")
	}
	return &Enrollment{
		Secret: key.Secret(),
		URI:    key.URL(),
	}, nil
}

// Verify reports whether code is valid for secret at the current time. A malformed secret or
// code is a failed verification, never an error.
func (v *Verifier) Verify(secret, code string) bool {
	code = strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	if secret == "" || code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, v.nowFunc().UTC(), v.opts())
	if err != nil {
		log.Debug().Err(err).Msg("totp validation failed")
		return false
	}
	return ok
}

// Code returns the current code for secret.
func (v *Verifier) Code(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, v.nowFunc().UTC(), v.opts())
}

func (v *Verifier) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    period,
		Skew:      v.window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
