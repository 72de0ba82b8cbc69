// Package adapters wires the authorization gate's ports to the rest of the
// system.
package adapters

import (
	"context"

	"agora/internal/chain"
	"agora/internal/ledger"
	"agora/internal/status"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// Profiles is the profile lookup the adapter needs. ledger.Store satisfies it.
type Profiles interface {
	AuthorOriginals(ctx context.Context, agent domain.AgentID, c domain.Collection) ([]ledger.Record, error)
}

// Chains resolves entity chains. chain.Resolver satisfies it.
type Chains interface {
	ResolveLatest(ctx context.Context, originalID domain.RecordID) (chain.Resolved, error)
}

// Statuses resolves status chains. status.Engine satisfies it.
type Statuses interface {
	Resolve(ctx context.Context, entityID domain.RecordID) (status.ResolvedStatus, error)
}

// StatusesFunc adapts a function to Statuses. The status engine and the
// gate need each other (the engine asks the gate to authorize transitions,
// the gate asks the engine for account standing), so the composition root
// hands the adapter a closure over the engine variable it assigns later.
type StatusesFunc func(ctx context.Context, entityID domain.RecordID) (status.ResolvedStatus, error)

func (f StatusesFunc) Resolve(ctx context.Context, entityID domain.RecordID) (status.ResolvedStatus, error) {
	return f(ctx, entityID)
}

// AccountAdapter implements authz.AccountStatus by resolving the agent's
// user profile and its moderation status.
type AccountAdapter struct {
	profiles Profiles
	chains   Chains
	statuses Statuses
}

// NewAccountAdapter creates an adapter over the given collaborators.
func NewAccountAdapter(profiles Profiles, chains Chains, statuses Statuses) *AccountAdapter {
	return &AccountAdapter{profiles: profiles, chains: chains, statuses: statuses}
}

// ProfileApproved reports whether the agent's user profile exists, is not
// deleted, and is effectively approved. Agents without a profile, or with a
// tombstoned one, are simply not in good standing; neither case is an error.
func (a *AccountAdapter) ProfileApproved(ctx context.Context, agent domain.AgentID) (bool, error) {
	profiles, err := a.profiles.AuthorOriginals(ctx, agent, domain.CollectionUsers)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "load user profile")
	}
	if len(profiles) == 0 {
		return false, nil
	}

	// The earliest original is the profile; the one-profile rule is
	// enforced at creation.
	profileID := profiles[0].ID
	if _, err := a.chains.ResolveLatest(ctx, profileID); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}

	res, err := a.statuses.Resolve(ctx, profileID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return res.Effective == status.StateApproved, nil
}
