package authz

import (
	"context"
	"slices"

	"agora/internal/ledger"
	"agora/pkg/domain"
)

// Grant is the payload of a role grant record.
type Grant struct {
	Role domain.Role `json:"role"`
}

// RoleOf folds the agent's grant and revoke log into a current role. The
// log is ordered by (timestamp, id), so every node folds identically; the
// last record wins and a revoke is a terminal "no role".
//
// Unknown agents fold to RoleNone like any agent without grants, which is
// what keeps denials uniform further up.
func (g *Gate) RoleOf(ctx context.Context, agent domain.AgentID) (domain.Role, error) {
	recs, err := g.store.BySubject(ctx, agent)
	if err != nil {
		return domain.RoleNone, storeErr(err, "load role log")
	}
	role := domain.RoleNone
	for _, rec := range recs {
		role = applyRoleRecord(role, rec)
	}
	return role, nil
}

// Administrators returns the agents whose folded role is administrator, in
// sorted order.
func (g *Gate) Administrators(ctx context.Context) ([]domain.AgentID, error) {
	grants, err := g.store.ByKind(ctx, ledger.KindGrant)
	if err != nil {
		return nil, storeErr(err, "load role log")
	}
	revokes, err := g.store.ByKind(ctx, ledger.KindRevoke)
	if err != nil {
		return nil, storeErr(err, "load role log")
	}

	log := append(grants, revokes...)
	ledger.SortRecords(log)

	roles := make(map[domain.AgentID]domain.Role)
	for _, rec := range log {
		roles[rec.Subject] = applyRoleRecord(roles[rec.Subject], rec)
	}

	var admins []domain.AgentID
	for agent, role := range roles {
		if role == domain.RoleAdministrator {
			admins = append(admins, agent)
		}
	}
	slices.Sort(admins)
	return admins, nil
}

// applyRoleRecord is one step of the role fold. Records that fail the
// closed-variant decode are skipped: relay ingestion rejects them at the
// boundary, and a skipped grant can only under-privilege, never escalate.
func applyRoleRecord(role domain.Role, rec ledger.Record) domain.Role {
	switch rec.Kind {
	case ledger.KindGrant:
		var grant Grant
		if err := ledger.DecodePayload(rec, &grant); err != nil {
			return role
		}
		parsed, err := domain.ParseGrantableRole(string(grant.Role))
		if err != nil {
			return role
		}
		return parsed
	case ledger.KindRevoke:
		return domain.RoleNone
	default:
		return role
	}
}
