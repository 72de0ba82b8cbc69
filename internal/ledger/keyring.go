package ledger

import (
	"context"
	"slices"
	"sync"

	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/requestcontext"
)

// Keyring holds the keypairs of the agents this node hosts. Every write is
// signed by its author, so a node can only author records for agents whose
// keys it holds; anything else arrives through the relay already sealed.
type Keyring struct {
	mu   sync.RWMutex
	keys map[domain.AgentID]Keypair
}

// NewKeyring creates a keyring holding the given keypairs.
func NewKeyring(kps ...Keypair) *Keyring {
	k := &Keyring{keys: make(map[domain.AgentID]Keypair, len(kps))}
	for _, kp := range kps {
		k.Add(kp)
	}
	return k
}

// Add registers a keypair. Zero keypairs are ignored.
func (k *Keyring) Add(kp Keypair) {
	if kp.IsZero() {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[kp.Agent()] = kp
}

// KeypairFor returns the keypair of a hosted agent.
func (k *Keyring) KeypairFor(agent domain.AgentID) (Keypair, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	kp, ok := k.keys[agent]
	return kp, ok
}

// Agents lists the hosted agent ids in sorted order.
func (k *Keyring) Agents() []domain.AgentID {
	k.mu.RLock()
	defer k.mu.RUnlock()
	agents := make([]domain.AgentID, 0, len(k.keys))
	for agent := range k.keys {
		agents = append(agents, agent)
	}
	slices.Sort(agents)
	return agents
}

// Acting returns the keypair of the agent acting on the context.
//
// No agent on the context is an authentication failure (CodeUnauthorized).
// An agent this node does not host gets the same CodeDenied an unprivileged
// agent would, so callers cannot probe which agents exist here.
func (k *Keyring) Acting(ctx context.Context) (Keypair, error) {
	agent := requestcontext.Agent(ctx)
	if agent.IsZero() {
		return Keypair{}, dErrors.New(dErrors.CodeUnauthorized, "no acting agent")
	}
	kp, ok := k.KeypairFor(agent)
	if !ok {
		return Keypair{}, dErrors.New(dErrors.CodeDenied, "permission denied")
	}
	return kp, nil
}
