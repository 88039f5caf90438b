// Package pdfupdate provides an incremental update writer for documents
// with indirect object tables and a chained cross-reference structure
// (the PDF format family).
//
// Given an in-memory set of modified, newly-created, and deleted
// top-level objects from a previously parsed document, core/update
// appends a compact byte-exact update trailer to an output stream such
// that the combined original bytes plus the appended bytes form a valid
// updated document.
//
// # Packages
//
//   - core/update: the incremental update writer (this module's core)
//   - core/parse: reads xref chains and merges incremental revisions
//   - core/encrypt: decrypt-side key derivation, used to verify what
//     core/update/security.go encrypts
//   - writer: AES-256 (V5) encryption-dictionary setup (key derivation,
//     O/U values, UE/OE key wrapping), used by core/update's security handler
//   - encryption: RC4/AES decrypt helpers
//   - types: shared value types and structured errors
package pdfupdate

import (
	"github.com/docspine/pdfupdate/types"
)

// Encryption holds PDF encryption parameters and derived keys.
type Encryption = types.PDFEncryption

// Version returns the library version.
func Version() string {
	return "0.1.0"
}
