package handler

import (
	"encoding/json"
	"time"

	"agora/internal/cache"
	"agora/internal/ledger"
	"agora/internal/status"
	"agora/pkg/domain"
)

// snapshotResponse is the wire projection of a resolved entity: permanent
// id, winning head, and effective status.
type snapshotResponse struct {
	ID         domain.RecordID   `json:"id"`
	Collection domain.Collection `json:"collection"`
	Head       domain.RecordID   `json:"head"`
	UpdatedBy  domain.AgentID    `json:"updated_by"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Depth      int               `json:"depth"`
	Forked     bool              `json:"forked,omitempty"`
	Payload    json.RawMessage   `json:"payload"`
	Status     statusResponse    `json:"status"`
}

type statusResponse struct {
	State   status.State `json:"state"`
	Stored  status.State `json:"stored,omitempty"`
	Until   *time.Time   `json:"until,omitempty"`
	Reason  string       `json:"reason,omitempty"`
	Expired bool         `json:"expired,omitempty"`
}

func fromSnapshot(snap cache.Snapshot) snapshotResponse {
	head := snap.Resolved.Record
	resp := snapshotResponse{
		ID:         snap.Resolved.Original,
		Collection: head.Collection,
		Head:       head.ID,
		UpdatedBy:  head.Author,
		UpdatedAt:  head.Timestamp,
		Depth:      snap.Resolved.Depth,
		Forked:     snap.Resolved.Forked,
		Payload:    head.Entry,
		Status: statusResponse{
			State:   snap.Status.Effective,
			Until:   snap.Status.Until,
			Reason:  snap.Status.Reason,
			Expired: snap.Status.Expired,
		},
	}
	// Stored only surfaces while it disagrees with the effective state, the
	// lazy-expiry window.
	if snap.Status.Stored != snap.Status.Effective {
		resp.Status.Stored = snap.Status.Stored
	}
	return resp
}

func fromSnapshots(snaps []cache.Snapshot) []snapshotResponse {
	out := make([]snapshotResponse, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, fromSnapshot(snap))
	}
	return out
}

// revisionResponse is one link of an entity's version history.
type revisionResponse struct {
	ID          domain.RecordID `json:"id"`
	Author      domain.AgentID  `json:"author"`
	Timestamp   time.Time       `json:"timestamp"`
	Predecessor domain.RecordID `json:"predecessor,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

func fromRevisions(revs []ledger.Record) []revisionResponse {
	out := make([]revisionResponse, 0, len(revs))
	for _, rec := range revs {
		out = append(out, revisionResponse{
			ID:          rec.ID,
			Author:      rec.Author,
			Timestamp:   rec.Timestamp,
			Predecessor: rec.Predecessor,
			Payload:     rec.Entry,
		})
	}
	return out
}
