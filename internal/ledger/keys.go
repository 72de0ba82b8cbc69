package ledger

import (
	"crypto/ed25519"
	"crypto/rand"

	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// Keypair is an agent's signing identity. The private key never leaves the
// process; the public key is the agent id.
type Keypair struct {
	agent domain.AgentID
	priv  ed25519.PrivateKey
}

// GenerateKeypair creates a fresh agent identity.
func GenerateKeypair() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate agent keypair")
	}
	return Keypair{agent: domain.AgentIDFromKey(pub), priv: priv}, nil
}

// KeypairFromSeed derives a deterministic identity from a 32-byte seed.
// Used for stable agent ids in tests and for key restore from config.
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return Keypair{}, dErrors.Newf(dErrors.CodeInvalidInput, "seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return Keypair{agent: domain.AgentIDFromKey(pub), priv: priv}, nil
}

// Agent returns the public identity of this keypair.
func (k Keypair) Agent() domain.AgentID { return k.agent }

// IsZero reports whether the keypair is uninitialized.
func (k Keypair) IsZero() bool { return len(k.priv) == 0 }
