package protocol

// A CertifyRequest asks the provider to certify a user's signing key.
// It travels encrypted with the session key of an authorized login.
type CertifyRequest struct {
	PKey     *JSONKey `json:"pkey"`
	Duration int64    `json:"duration"`
}

// A CertifyReply carries a freshly issued user certificate with the
// provider certificate that signed it.
type CertifyReply struct {
	UserCert *SignedLoad `json:"userCert"`
	ProvCert *SignedLoad `json:"provCert"`
}

// A ServiceRoot is what a provider publishes at its service root:
// its root certificates and the relative location of provisioning.
type ServiceRoot struct {
	CurrentCert   *SignedLoad   `json:"current-cert"`
	PreviousCerts []*SignedLoad `json:"previous-certs"`
	Provisioning  string        `json:"provisioning"`
}

// An AssertionBundle carries an assertion with the certificates a
// relying party needs to verify it, except the root.
type AssertionBundle struct {
	Assertion *SignedLoad `json:"assertion"`
	UserCert  *SignedLoad `json:"userCert"`
	ProvCert  *SignedLoad `json:"provCert"`
}

// RootCerts is a provider's root certificate history. Previous
// certificates stay published so that chains signed just before a
// rotation still verify.
type RootCerts struct {
	Current  *SignedLoad   `json:"current"`
	Previous []*SignedLoad `json:"previous"`
}
