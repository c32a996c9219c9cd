package consensus

import "github.com/tolelom/dancore/crypto"

// SignatureService signs votes for this validator (spec.md §4.7 C7). No
// persistence: the private key lives only in memory for the process
// lifetime.
type SignatureService interface {
	Sign(message []byte) string
	PublicKey() crypto.PublicKey
}

// Ed25519SignatureService implements SignatureService with ed25519,
// standing in for the original's Schnorr signatures (spec.md Non-goals:
// "defining a new cryptographic primitive" — ed25519 is the teacher's
// existing primitive, reused here rather than introducing Schnorr).
type Ed25519SignatureService struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// NewEd25519SignatureService wraps a validator's private key.
func NewEd25519SignatureService(priv crypto.PrivateKey) *Ed25519SignatureService {
	return &Ed25519SignatureService{priv: priv, pub: priv.Public()}
}

func (s *Ed25519SignatureService) Sign(message []byte) string {
	return crypto.Sign(s.priv, message)
}

func (s *Ed25519SignatureService) PublicKey() crypto.PublicKey { return s.pub }
