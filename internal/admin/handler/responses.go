package handler

import (
	"encoding/json"
	"time"

	"agora/internal/cache"
	"agora/internal/status"
	"agora/pkg/domain"
)

// statusActionResponse reports the entity's standing after a moderation
// action.
type statusActionResponse struct {
	ID     domain.RecordID `json:"id"`
	State  status.State    `json:"state"`
	Stored status.State    `json:"stored,omitempty"`
	Until  *time.Time      `json:"until,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

func fromStatus(snap cache.Snapshot) statusActionResponse {
	resp := statusActionResponse{
		ID:     snap.Resolved.Original,
		State:  snap.Status.Effective,
		Until:  snap.Status.Until,
		Reason: snap.Status.Reason,
	}
	if snap.Status.Stored != snap.Status.Effective {
		resp.Stored = snap.Status.Stored
	}
	return resp
}

// queueItem is one pending submission awaiting review.
type queueItem struct {
	ID          domain.RecordID `json:"id"`
	SubmittedBy domain.AgentID  `json:"submitted_by"`
	SubmittedAt time.Time       `json:"submitted_at"`
	Payload     json.RawMessage `json:"payload"`
}

func fromQueue(snaps []cache.Snapshot) []queueItem {
	out := make([]queueItem, 0, len(snaps))
	for _, snap := range snaps {
		head := snap.Resolved.Record
		out = append(out, queueItem{
			ID:          snap.Resolved.Original,
			SubmittedBy: head.Author,
			SubmittedAt: head.Timestamp,
			Payload:     head.Entry,
		})
	}
	return out
}

type roleResponse struct {
	Agent domain.AgentID `json:"agent"`
	Role  domain.Role    `json:"role"`
}
