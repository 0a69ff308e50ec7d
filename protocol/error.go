// Defines constants representing the kinds of failures
// reported by the certificate engine and the verification
// of certificate chains and assertions.

package protocol

// An ErrorCode is a kind of failure. Failures are returned wrapped with
// context, so callers should match kinds with errors.Is.
type ErrorCode int

const (
	// ErrAlgMismatch indicates a key or a signed load
	// made for another algorithm.
	ErrAlgMismatch ErrorCode = iota + 100
	// ErrTimeMismatch indicates a certificate or an assertion
	// used outside of its validity window.
	ErrTimeMismatch
	// ErrCertsMismatch indicates certificates in a chain
	// that do not belong together, or an assertion that
	// does not match its chain.
	ErrCertsMismatch
	// ErrCertMalformed indicates a certificate, an assertion
	// or a signed load that cannot be decoded.
	ErrCertMalformed
	// ErrSigVerification indicates a signature that does not verify.
	ErrSigVerification
	// ErrKeyUseMismatch indicates a key loaded for another use.
	ErrKeyUseMismatch
	// ErrKeyMalformed indicates a key of the wrong length.
	ErrKeyMalformed
	// ErrInvalidValidity indicates an illegal validity period.
	ErrInvalidValidity
	// ErrKeyCertMismatch indicates a signing key that does not
	// correspond to the certificate it is used with.
	ErrKeyCertMismatch
	// ErrCertExpired indicates a signing key whose certificate
	// has already expired.
	ErrCertExpired
	// ErrCertifierDestroyed is returned by a destroyed certifier.
	ErrCertifierDestroyed
	// ErrSignerDestroyed is returned by a destroyed signer.
	ErrSignerDestroyed
)

var errorMessages = map[ErrorCode]string{
	ErrAlgMismatch:        "[mailerid] Algorithm mismatch",
	ErrTimeMismatch:       "[mailerid] Time mismatch",
	ErrCertsMismatch:      "[mailerid] Certificates mismatch",
	ErrCertMalformed:      "[mailerid] Malformed certificate",
	ErrSigVerification:    "[mailerid] Signature verification fails",
	ErrKeyUseMismatch:     "[mailerid] Key use mismatch",
	ErrKeyMalformed:       "[mailerid] Malformed key",
	ErrInvalidValidity:    "[mailerid] Illegal validity period",
	ErrKeyCertMismatch:    "[mailerid] Key does not correspond to certificate",
	ErrCertExpired:        "[mailerid] Certificate has expired",
	ErrCertifierDestroyed: "[mailerid] Certifier destroyed",
	ErrSignerDestroyed:    "[mailerid] Signer destroyed",
}

// Error returns the error message corresponding to the ErrorCode.
func (e ErrorCode) Error() string {
	if msg, ok := errorMessages[e]; ok {
		return msg
	}
	return "[mailerid] Unknown error"
}
