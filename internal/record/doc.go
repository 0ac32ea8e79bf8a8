// Package record defines the wallet's record types: credentials, proofs and
// settings.
//
// This package contains no storage code. Every other internal package imports
// record; record imports nothing internal.
//
// Key design constraints:
//   - Signature, public key and proof material are opaque encoded strings.
//     Nothing here decodes or verifies them.
//   - JSON tags use camelCase so stored bodies match what issuance and
//     proof-generation flows hand to the wallet.
//   - Timestamps are ISO-8601 strings, compared lexicographically by the
//     store's range indexes.
//   - Structural shape is checked against an embedded CUE schema
//     (see schema.cue); cryptographic validity never is.
package record
