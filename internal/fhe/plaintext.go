package fhe

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
)

// PlaintextAlgebra is the marker implementation of Algebra: a "ciphertext" is
// the plaintext wrapped in a magic header plus a random nonce, so equal
// plaintexts still produce distinct handles the way a randomized encoding
// would. It backs development mode and every state-machine test; it provides
// no confidentiality whatsoever.
type PlaintextAlgebra struct{}

// NewPlaintextAlgebra returns the marker algebra.
func NewPlaintextAlgebra() *PlaintextAlgebra {
	return &PlaintextAlgebra{}
}

var plaintextMagic = []byte("ptxt")

const (
	plaintextLen = 4 + 4 + 8 // magic + value + nonce
	nonceOffset  = 8
)

var errNotPlaintextHandle = errors.New("not a plaintext-marker ciphertext")

func (a *PlaintextAlgebra) encode(v uint32) Ciphertext {
	out := make([]byte, plaintextLen)
	copy(out, plaintextMagic)
	binary.BigEndian.PutUint32(out[4:], v)
	if _, err := rand.Read(out[nonceOffset:]); err != nil {
		// crypto/rand never fails on supported platforms; the nonce is
		// cosmetic anyway.
		binary.BigEndian.PutUint64(out[nonceOffset:], 0)
	}
	return out
}

func (a *PlaintextAlgebra) decode(c Ciphertext) (uint32, error) {
	if len(c) != plaintextLen || string(c[:4]) != string(plaintextMagic) {
		return 0, errNotPlaintextHandle
	}
	return binary.BigEndian.Uint32(c[4:8]), nil
}

// Encrypt wraps a known value. Callers submitting records in development mode
// use this where a real client would encrypt under the scheme's public key.
func (a *PlaintextAlgebra) Encrypt(v uint32) Ciphertext {
	return a.encode(v)
}

// Decrypt recovers the wrapped value. This is the "oracle" side of the marker
// scheme; production code paths never call it.
func (a *PlaintextAlgebra) Decrypt(c Ciphertext) (uint32, error) {
	return a.decode(c)
}

// DecryptBool recovers an encrypted boolean produced by GreaterThan.
func (a *PlaintextAlgebra) DecryptBool(c Ciphertext) (bool, error) {
	v, err := a.decode(c)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (a *PlaintextAlgebra) Add(x, y Ciphertext) (Ciphertext, error) {
	xv, err := a.decode(x)
	if err != nil {
		return nil, fmt.Errorf("add lhs: %w", err)
	}
	yv, err := a.decode(y)
	if err != nil {
		return nil, fmt.Errorf("add rhs: %w", err)
	}
	return a.encode(xv + yv), nil
}

func (a *PlaintextAlgebra) Mul(x, y Ciphertext) (Ciphertext, error) {
	xv, err := a.decode(x)
	if err != nil {
		return nil, fmt.Errorf("mul lhs: %w", err)
	}
	yv, err := a.decode(y)
	if err != nil {
		return nil, fmt.Errorf("mul rhs: %w", err)
	}
	return a.encode(xv * yv), nil
}

func (a *PlaintextAlgebra) DivConst(x Ciphertext, k uint32) (Ciphertext, error) {
	if k == 0 {
		return nil, errors.New("division by zero constant")
	}
	xv, err := a.decode(x)
	if err != nil {
		return nil, fmt.Errorf("divconst: %w", err)
	}
	return a.encode(xv / k), nil
}

func (a *PlaintextAlgebra) GreaterThan(x, y Ciphertext) (Ciphertext, error) {
	xv, err := a.decode(x)
	if err != nil {
		return nil, fmt.Errorf("greater-than lhs: %w", err)
	}
	yv, err := a.decode(y)
	if err != nil {
		return nil, fmt.Errorf("greater-than rhs: %w", err)
	}
	var b uint32
	if xv > yv {
		b = 1
	}
	return a.encode(b), nil
}

func (a *PlaintextAlgebra) Constant(k uint32) (Ciphertext, error) {
	return a.encode(k), nil
}
