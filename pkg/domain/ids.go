package domain

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	dErrors "agora/pkg/domain-errors"
)

// Typed identifiers for the two key spaces of the ledger. Both render as
// 64-character lowercase hex. The distinct types exist so a record hash can
// never be passed where an agent key is expected; the compiler enforces it.
//
// Construct via the Parse functions at trust boundaries; direct casting
// bypasses validation.

const rawIDLen = 32

// RecordID is the content-derived identity of a ledger record: a blake2b-256
// digest over the record's canonical envelope. The zero value means "no
// record" and is used for the predecessor of original records.
type RecordID string

// AgentID identifies an agent by its ed25519 public key.
type AgentID string

// ParseRecordID validates and canonicalizes an externally supplied record id.
// Accepts mixed-case hex, stores lowercase. The all-zero digest is reserved
// for "no predecessor" and is rejected as external input.
func ParseRecordID(s string) (RecordID, error) {
	raw, err := parseHexID(s, "record id")
	if err != nil {
		return "", err
	}
	return RecordID(hex.EncodeToString(raw)), nil
}

// ParseAgentID validates and canonicalizes an externally supplied agent id.
func ParseAgentID(s string) (AgentID, error) {
	raw, err := parseHexID(s, "agent id")
	if err != nil {
		return "", err
	}
	return AgentID(hex.EncodeToString(raw)), nil
}

// RecordIDFromBytes builds a RecordID from a raw digest. Panics on a wrong
// length; only hashing code paths call it, with a fixed-size digest.
func RecordIDFromBytes(b []byte) RecordID {
	if len(b) != rawIDLen {
		panic(fmt.Sprintf("record id from %d bytes", len(b)))
	}
	return RecordID(hex.EncodeToString(b))
}

// AgentIDFromKey derives an AgentID from an ed25519 public key.
func AgentIDFromKey(pub ed25519.PublicKey) AgentID {
	return AgentID(hex.EncodeToString(pub))
}

func (id RecordID) String() string { return string(id) }
func (id RecordID) IsZero() bool   { return id == "" }

func (a AgentID) String() string { return string(a) }
func (a AgentID) IsZero() bool   { return a == "" }

// PublicKey decodes the agent id back into a verification key.
func (a AgentID) PublicKey() (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(string(a))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "agent id is not a valid public key")
	}
	return ed25519.PublicKey(raw), nil
}

func parseHexID(s, what string) ([]byte, error) {
	if s == "" {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	if len(s) != 2*rawIDLen {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be %d hex characters", what, 2*rawIDLen)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not valid hex", what)
	}
	allZero := true
	for _, b := range raw {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the zero digest", what)
	}
	return raw, nil
}
