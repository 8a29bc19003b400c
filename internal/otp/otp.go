// Package otp provides helpers for generating and validating time-based
// one-time passwords (TOTP).
//
// Each account owns an independent base32 seed; a code derived from one seed
// never validates against another. Verification tolerates a bounded clock
// drift expressed in 30-second steps.
package otp

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"net/url"
	"time"

	otplib "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP step length in seconds.
	Period = 30
	// seedBytes is the raw seed length; 20 bytes encode to 32 base32 chars.
	seedBytes = 20
)

// NewSeed generates a fresh base32-encoded TOTP seed.
func NewSeed() (string, error) {
	buf := make([]byte, seedBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate otp seed: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// VerifyAt reports whether code is a valid 6-digit TOTP for seed at time t,
// accepting the step containing t plus drift steps on either side.
// Malformed codes (wrong length, non-digits) are rejected.
func VerifyAt(seed, code string, t time.Time, drift uint) bool {
	ok, err := totp.ValidateCustom(code, seed, t, totp.ValidateOpts{
		Period:    Period,
		Skew:      drift,
		Digits:    otplib.DigitsSix,
		Algorithm: otplib.AlgorithmSHA1,
	})
	return err == nil && ok
}

// Verifier validates submitted codes and formats enrollment URIs for a
// fixed issuer and drift window.
type Verifier struct {
	// Issuer is the name shown by authenticator apps.
	Issuer string
	// Drift is the number of adjacent steps accepted around the current one.
	Drift uint
}

// NewVerifier constructs a Verifier for the given issuer and drift window.
func NewVerifier(issuer string, drift uint) *Verifier {
	return &Verifier{Issuer: issuer, Drift: drift}
}

// Verify reports whether code is currently valid for seed.
func (v *Verifier) Verify(seed, code string) bool {
	return VerifyAt(seed, code, time.Now(), v.Drift)
}

// ProvisioningURI returns the otpauth:// enrollment URI for an account seed,
// suitable for rendering as a QR code by the caller. The result depends only
// on the issuer, account, and seed.
func (v *Verifier) ProvisioningURI(account, seed string) string {
	u := url.URL{
		Scheme: "otpauth",
		Host:   "totp",
		Path:   "/" + v.Issuer + ":" + account,
		RawQuery: url.Values{
			"issuer": {v.Issuer},
			"secret": {seed},
		}.Encode(),
	}
	return u.String()
}
