// Package ledger defines the append-only record model shared by every agent
// and the stores that persist it.
//
// A record is never mutated after sealing. Updates append a new record whose
// predecessor points at the superseded one; deletes append a tombstone whose
// target names the removed record. Which version of an entity is current is
// not stored anywhere: readers derive it from the update graph (see
// internal/chain).
package ledger

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
)

// hashDomain versions the id scheme. Changing anything about the envelope
// encoding requires a new value here, or old and new ids would collide.
const hashDomain = "agora/record/v1"

// Kind discriminates what a record asserts.
type Kind string

const (
	// KindEntity carries a marketplace entity payload (original or update).
	KindEntity Kind = "entity"
	// KindStatus carries a moderation status document for a target entity.
	KindStatus Kind = "status"
	// KindTombstone marks its target record as deleted.
	KindTombstone Kind = "tombstone"
	// KindGrant assigns a role to a subject agent.
	KindGrant Kind = "grant"
	// KindRevoke removes the subject agent's role.
	KindRevoke Kind = "revoke"
)

var validKinds = map[Kind]bool{
	KindEntity:    true,
	KindStatus:    true,
	KindTombstone: true,
	KindGrant:     true,
	KindRevoke:    true,
}

// ParseKind validates an externally supplied kind (relay ingestion).
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !validKinds[k] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown record kind %q", s)
	}
	return k, nil
}

// Record is a sealed, signed ledger entry. All fields participate in the id
// digest; none may change after sealing.
type Record struct {
	ID          domain.RecordID   `json:"id"`
	Author      domain.AgentID    `json:"author"`
	Timestamp   time.Time         `json:"timestamp"`
	Predecessor domain.RecordID   `json:"predecessor,omitempty"`
	Kind        Kind              `json:"kind"`
	Collection  domain.Collection `json:"collection,omitempty"`
	Target      domain.RecordID   `json:"target,omitempty"`
	Subject     domain.AgentID    `json:"subject,omitempty"`
	Entry       json.RawMessage   `json:"entry,omitempty"`
	Signature   []byte            `json:"signature"`
}

// IsOriginal reports whether the record starts a chain.
func (r Record) IsOriginal() bool { return r.Predecessor.IsZero() }

// Draft is the unsealed form of a record. Seal canonicalizes the payload,
// derives the id and signs the envelope.
type Draft struct {
	Kind        Kind
	Collection  domain.Collection
	Predecessor domain.RecordID
	Target      domain.RecordID
	Subject     domain.AgentID
	Payload     any
	// Timestamp defaults to the wall clock. Callers pass the request-scoped
	// time so one request seals consistently ordered records.
	Timestamp time.Time
}

// Seal turns a draft into a signed record authored by kp.
func Seal(d Draft, kp Keypair) (Record, error) {
	if !validKinds[d.Kind] {
		return Record{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown record kind %q", d.Kind)
	}

	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	// Micro precision: the digest covers UnixMicro, so finer precision would
	// be silently unsigned.
	ts = ts.UTC().Truncate(time.Microsecond)

	var entry json.RawMessage
	if d.Payload != nil {
		canonical, err := Canonicalize(d.Payload)
		if err != nil {
			return Record{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "payload not canonicalizable")
		}
		entry = canonical
	}

	rec := Record{
		Author:      kp.Agent(),
		Timestamp:   ts,
		Predecessor: d.Predecessor,
		Kind:        d.Kind,
		Collection:  d.Collection,
		Target:      d.Target,
		Subject:     d.Subject,
		Entry:       entry,
	}

	digest, err := rec.digest()
	if err != nil {
		return Record{}, err
	}
	rec.ID = domain.RecordIDFromBytes(digest)
	rec.Signature = ed25519.Sign(kp.priv, digest)
	return rec, nil
}

// Verify recomputes the record id and checks the author's signature. Stores
// call it before accepting records from outside the local agent (relay
// ingestion); locally sealed records are valid by construction.
func (r Record) Verify() error {
	digest, err := r.digest()
	if err != nil {
		return err
	}
	if domain.RecordIDFromBytes(digest) != r.ID {
		return dErrors.New(dErrors.CodeInvariantViolation, "record id does not match content")
	}
	pub, err := r.Author.PublicKey()
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, digest, r.Signature) {
		return dErrors.New(dErrors.CodeInvariantViolation, "record signature invalid")
	}
	return nil
}

// digest hashes the canonical envelope with domain separation:
// blake2b-256(hashDomain || 0x00 || canonical envelope).
func (r Record) digest() ([]byte, error) {
	entry := rawLiteral("{}")
	if len(r.Entry) > 0 {
		entry = rawLiteral(r.Entry)
	}
	envelope := map[string]any{
		"author":      r.Author.String(),
		"timestamp":   json.Number(strconv.FormatInt(r.Timestamp.UnixMicro(), 10)),
		"predecessor": r.Predecessor.String(),
		"kind":        string(r.Kind),
		"collection":  r.Collection.String(),
		"target":      r.Target.String(),
		"subject":     r.Subject.String(),
		"entry":       entry,
	}

	var buf bytes.Buffer
	if err := appendCanonical(&buf, envelope); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode record envelope")
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "init record digest")
	}
	h.Write([]byte(hashDomain))
	h.Write([]byte{0x00})
	h.Write(buf.Bytes())
	return h.Sum(nil), nil
}

// DecodePayload decodes a record's entry into v, rejecting unknown fields so
// unrecognized payload variants fail loudly instead of zero-filling.
func DecodePayload(r Record, v any) error {
	if len(r.Entry) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "record has no payload")
	}
	dec := json.NewDecoder(bytes.NewReader(r.Entry))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "record payload does not match schema")
	}
	return nil
}
