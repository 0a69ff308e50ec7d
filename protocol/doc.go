/*
Package protocol is a library for building compatible MailerId identity
providers, users and relying parties.

protocol implements the certificate-chain side of MailerId: a home server
issues short-lived certificate chains that let a user prove ownership of
an address to a relying party, which verifies the proof offline.

Keys

This module defines the JSON form of keys (JSONKey) and the in-memory,
wipeable form (Key). Every key carries a use tag and an algorithm name;
both are checked whenever a key is loaded.

Certificates

This module builds and interprets KeyCerts: signed loads binding a public
key to a principal address, an issuer and a validity window. It generates
root and provider signing keys, and exposes the IdProviderCertifier that
signs user keys into user certificates.

Verification

This module walks a root -> provider -> user certificate chain, checking
signatures and temporal validity of each link, and verifies assertions
and application key certificates made by the user's signing key.

Signer

This module implements the user side: a MailerIdSigner holds the user's
signing key together with its certificates, and produces assertions for
relying parties.

Error

This module defines the constants representing the kinds of failures that
certificate and assertion verification may report.
*/
package protocol
