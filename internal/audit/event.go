// Package audit captures moderation-relevant actions for compliance review.
// Domain logic emits events without blocking; a worker drains them into a
// store. Losing an audit event under pressure is preferred to stalling a
// write path, and every drop is logged and counted.
package audit

import (
	"time"

	"agora/pkg/domain"
)

// Category classifies events by purpose, which drives retention and routing.
type Category string

const (
	// CategoryCompliance covers events with regulatory significance:
	// moderation decisions, role changes, deletions. Long retention.
	CategoryCompliance Category = "compliance"

	// CategorySecurity covers events for abuse monitoring: denied attempts,
	// unknown-agent requests.
	CategorySecurity Category = "security"

	// CategoryOperations covers routine activity useful for debugging. Can
	// be sampled.
	CategoryOperations Category = "operations"
)

// Action identifies what happened.
type Action string

const (
	ActionEntityCreated     Action = "entity_created"
	ActionEntityUpdated     Action = "entity_updated"
	ActionEntityDeleted     Action = "entity_deleted"
	ActionStatusTransition  Action = "status_transitioned"
	ActionEntitySuspended   Action = "entity_suspended"
	ActionEntityUnsuspended Action = "entity_unsuspended"
	ActionRoleGranted       Action = "role_granted"
	ActionRoleRevoked       Action = "role_revoked"
	ActionAccessDenied      Action = "access_denied"
)

// actionCategories maps each action to its category. Compliance actions
// require tamper-evident storage; security actions feed abuse monitoring;
// the rest is operational visibility.
var actionCategories = map[Action]Category{
	ActionEntityDeleted:     CategoryCompliance,
	ActionStatusTransition:  CategoryCompliance,
	ActionEntitySuspended:   CategoryCompliance,
	ActionEntityUnsuspended: CategoryCompliance,
	ActionRoleGranted:       CategoryCompliance,
	ActionRoleRevoked:       CategoryCompliance,

	ActionAccessDenied: CategorySecurity,

	ActionEntityCreated: CategoryOperations,
	ActionEntityUpdated: CategoryOperations,
}

// Category returns the action's category. Unknown actions default to
// operations.
func (a Action) Category() Category {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is one audited action. Category is derived from Action at emission;
// emitters never set it.
type Event struct {
	Category  Category        `json:"category"`
	Action    Action          `json:"action"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     domain.AgentID  `json:"actor,omitempty"`
	Subject   domain.AgentID  `json:"subject,omitempty"`
	Entity    domain.RecordID `json:"entity,omitempty"`
	// Collection of the affected entity, when one is involved.
	Collection domain.Collection `json:"collection,omitempty"`
	// Reason carries the moderation reason or the denied operation's name.
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
