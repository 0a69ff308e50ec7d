package protocol

import "time"

// Validity periods and limits, in seconds.
const (
	// MinValidityPeriodForCert is the grace before a certificate's
	// issue time during which it is still accepted, to tolerate
	// clock skew at issuance. Application key certificates shorter
	// than this are checked with a tight symmetric window instead.
	MinValidityPeriodForCert int64 = 20 * 60
	// MaxUserCertValidity bounds the validity of user certificates.
	MaxUserCertValidity int64 = 24 * 60 * 60
	// MaxSigValidity bounds the validity of assertions.
	MaxSigValidity int64 = 30 * 60
	// DefaultAssertionValidity is used by signers when no
	// explicit assertion validity is given.
	DefaultAssertionValidity int64 = 20 * 60
)

// A Clock returns the current time. A nil Clock means time.Now.
type Clock func() time.Time

func (c Clock) unix() int64 {
	if c == nil {
		return time.Now().Unix()
	}
	return c().Unix()
}
