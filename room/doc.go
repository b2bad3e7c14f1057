// Package room implements the CryptoSanta room: the shared bulletin board a
// Chair and participants use to run a Secret Santa key exchange without the
// server ever seeing plaintext.
//
// All cryptography happens client-side. The server holds opaque strings
// (ElGamal parameters, encrypted keys, encrypted message blobs), enforces the
// OPEN -> SORTED -> MESSAGING lifecycle, and keeps concurrent writers from
// corrupting a room through optimistic locking: every mutation re-reads the
// record, validates against fresh state, and commits only if the version is
// unchanged, retrying with exponential backoff on conflict.
package room
