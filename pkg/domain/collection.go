package domain

import dErrors "agora/pkg/domain-errors"

// Collection identifies which marketplace entity family a record belongs to.
// Invariant: the value must be one of the supported collections; records in
// unknown collections are rejected before any write.
//
// Usage: construct via ParseCollection at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Collection string

// Supported entity collections.
const (
	CollectionUsers         Collection = "users"
	CollectionOrganizations Collection = "organizations"
	CollectionRequests      Collection = "requests"
	CollectionOffers        Collection = "offers"
	CollectionServiceTypes  Collection = "service_types"
)

// validCollections is the single source of truth for valid collections.
var validCollections = map[Collection]bool{
	CollectionUsers:         true,
	CollectionOrganizations: true,
	CollectionRequests:      true,
	CollectionOffers:        true,
	CollectionServiceTypes:  true,
}

// Collections lists the supported collections in a stable order.
func Collections() []Collection {
	return []Collection{
		CollectionUsers,
		CollectionOrganizations,
		CollectionRequests,
		CollectionOffers,
		CollectionServiceTypes,
	}
}

// ParseCollection constructs a Collection from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported;
// no other errors are expected.
func ParseCollection(s string) (Collection, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "collection cannot be empty")
	}
	c := Collection(s)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown collection %q", s)
	}
	return c, nil
}

// IsValid checks if the collection is one of the supported enum values.
func (c Collection) IsValid() bool {
	return validCollections[c]
}

// String returns the string representation of the collection.
func (c Collection) String() string {
	return string(c)
}
