// Package status implements the moderation lifecycle of marketplace
// entities. Status lives in its own record sub-chain per entity, so the
// current state is derived the same way the current entity version is:
// by resolving the chain, never by reading a mutable field.
package status

import (
	"slices"
	"time"
	"unicode/utf8"

	dErrors "agora/pkg/domain-errors"
)

// State is a moderation state. The set is closed; decoding an unknown state
// fails instead of defaulting.
type State string

const (
	// StatePending awaits review. Every entity starts here.
	StatePending State = "pending"
	// StateApproved is visible in the marketplace.
	StateApproved State = "approved"
	// StateRejected failed review. The author may resubmit.
	StateRejected State = "rejected"
	// StateSuspended is an approved entity pulled from the marketplace,
	// either until a given time or indefinitely.
	StateSuspended State = "suspended"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateApproved:  true,
	StateRejected:  true,
	StateSuspended: true,
}

// ParseState validates an externally supplied state.
func ParseState(s string) (State, error) {
	st := State(s)
	if !validStates[st] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status state %q", s)
	}
	return st, nil
}

func (s State) String() string { return string(s) }

// transitions is the legal edge set of the lifecycle. Who may take an edge
// is the authorization gate's concern, not this table's.
var transitions = map[State][]State{
	StatePending:   {StateApproved, StateRejected},
	StateApproved:  {StateSuspended},
	StateSuspended: {StateApproved},
	StateRejected:  {StateApproved, StatePending},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// MaxReasonLen caps the free-text reason on a status record.
const MaxReasonLen = 500

// Document is the payload of a status record.
//
// Until is only meaningful on a suspension: set, the suspension lapses at
// that time; absent, the suspension holds until an administrator reinstates
// the entity.
type Document struct {
	State  State      `json:"state"`
	Until  *time.Time `json:"until,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// Validate checks the document's shape. Runs before sealing and again after
// decoding, so records ingested from other nodes face the same closed set.
func (d Document) Validate() error {
	if _, err := ParseState(string(d.State)); err != nil {
		return err
	}
	if d.Until != nil && d.State != StateSuspended {
		return dErrors.New(dErrors.CodeInvalidInput, "until is only valid on a suspension")
	}
	if utf8.RuneCountInString(d.Reason) > MaxReasonLen {
		return dErrors.Newf(dErrors.CodeValidation, "reason exceeds %d characters", MaxReasonLen)
	}
	return nil
}
