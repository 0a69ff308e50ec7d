// Package crypto contains the low-level routines shared by the MailerId
// packages, to:
// - generate random slices of bytes, both raw (for secret material) and
// hashed with sha3 (shake128) for values that go on the wire
// - generate key identifiers
// - wipe secret material from memory.
//
// Signing keys live in crypto/sign, and the DH key agreement together with
// the authenticated encryption used by the login protocol live in crypto/box.
package crypto
