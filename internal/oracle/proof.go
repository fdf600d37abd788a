package oracle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"veil/internal/fhe"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// ProofClaims is the JWT payload the oracle signs over a decryption it
// performed. Digest binds the cleartexts to the exact ciphertext set the
// service sent, so a proof cannot be replayed against a different request.
type ProofClaims struct {
	RequestID string `json:"request_id"`
	Digest    string `json:"digest"`
	jwt.RegisteredClaims
}

// ProofVerifier checks an oracle callback proof against the resolved request
// and the delivered cleartexts.
type ProofVerifier interface {
	Verify(request Request, cleartexts []uint32, proof []byte) error
}

// JWTProofService verifies (and, for the loopback oracle and tests, signs)
// HS256 proofs with the key shared with the oracle.
type JWTProofService struct {
	key []byte
}

func NewJWTProofService(key string) *JWTProofService {
	return &JWTProofService{key: []byte(key)}
}

// Digest computes the binding digest: SHA-256 over the request id, the
// cleartext values in order, and the originally requested ciphertexts in
// order.
func Digest(requestID domain.RequestID, cleartexts []uint32, ciphertexts []fhe.Ciphertext) string {
	h := sha256.New()
	h.Write([]byte(requestID.String()))
	var buf [4]byte
	for _, v := range cleartexts {
		binary.BigEndian.PutUint32(buf[:], v)
		h.Write(buf[:])
	}
	for _, ct := range ciphertexts {
		h.Write(ct)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Sign produces a proof for the given decryption. Production deployments
// receive proofs from the external oracle; this signer serves the loopback
// oracle and tests.
func (s *JWTProofService) Sign(requestID domain.RequestID, cleartexts []uint32, ciphertexts []fhe.Ciphertext) ([]byte, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ProofClaims{
		RequestID: requestID.String(),
		Digest:    Digest(requestID, cleartexts, ciphertexts),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, err
	}
	return []byte(signed), nil
}

// Verify checks signature, request binding and cleartext digest. Any failure
// is CodeInvalidProof; the caller must not commit anything on error.
func (s *JWTProofService) Verify(request Request, cleartexts []uint32, proof []byte) error {
	parsed, err := jwt.ParseWithClaims(string(proof), &ProofClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.key, nil
	})
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInvalidProof, "proof signature verification failed", err)
	}
	if !parsed.Valid {
		return dErrors.New(dErrors.CodeInvalidProof, "proof token is not valid")
	}
	claims, ok := parsed.Claims.(*ProofClaims)
	if !ok {
		return dErrors.New(dErrors.CodeInvalidProof, "proof carries unexpected claims")
	}
	if claims.RequestID != request.ID.String() {
		return dErrors.New(dErrors.CodeInvalidProof, "proof is bound to a different request")
	}
	if claims.Digest != Digest(request.ID, cleartexts, request.Ciphertexts) {
		return dErrors.New(dErrors.CodeInvalidProof, "proof digest does not match cleartexts")
	}
	return nil
}
