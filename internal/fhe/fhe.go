// Package fhe defines the narrow interface the service consumes from the
// homomorphic cryptosystem. The scheme itself is an external capability;
// nothing in this repository implements real encryption. Keeping the surface
// to five operations lets the state machine be tested against the
// plaintext-marker implementation in this package.
package fhe

import "bytes"

// Ciphertext is an opaque handle to an encrypted 32-bit unsigned value (or an
// encrypted boolean produced by a comparison). Handles travel over the wire
// base64-encoded; the core never inspects their contents.
type Ciphertext []byte

// Clone returns an independent copy of the handle.
func (c Ciphertext) Clone() Ciphertext {
	return bytes.Clone(c)
}

// IsZero reports whether the handle is empty.
func (c Ciphertext) IsZero() bool {
	return len(c) == 0
}

// Algebra is the ciphertext arithmetic contract. All operations are pure:
// same underlying plaintexts in, a ciphertext decrypting to the same result
// out, regardless of the randomized encoding of the inputs. Overflow is not
// observable here; it wraps or saturates per the underlying scheme.
type Algebra interface {
	// Add returns a ciphertext of a+b.
	Add(a, b Ciphertext) (Ciphertext, error)
	// Mul returns a ciphertext of a*b.
	Mul(a, b Ciphertext) (Ciphertext, error)
	// DivConst returns a ciphertext of a/k with truncating unsigned division.
	DivConst(a Ciphertext, k uint32) (Ciphertext, error)
	// GreaterThan returns an encrypted boolean of a > b.
	GreaterThan(a, b Ciphertext) (Ciphertext, error)
	// Constant lifts a known integer into ciphertext space for use as a
	// formula coefficient.
	Constant(k uint32) (Ciphertext, error)
}
