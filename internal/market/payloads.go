package market

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/asaskevich/govalidator"

	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	pstrings "agora/pkg/platform/strings"
)

const (
	maxTitleLen = 120
	maxBodyLen  = 2000
)

// Payload is the collection-specific body of an entity record. Payloads are
// normalized and validated before anything is sealed or appended; a record
// that reaches the ledger always carries a payload that passed Validate.
type Payload interface {
	Normalize()
	Validate() error
}

// RequestState is the requester-facing lifecycle of a Request, orthogonal to
// the moderation status chain.
type RequestState string

const (
	RequestStateDraft      RequestState = "draft"
	RequestStatePublished  RequestState = "published"
	RequestStateInProgress RequestState = "in_progress"
	RequestStateCompleted  RequestState = "completed"
	RequestStateCancelled  RequestState = "cancelled"
)

var validRequestStates = map[RequestState]bool{
	RequestStateDraft:      true,
	RequestStatePublished:  true,
	RequestStateInProgress: true,
	RequestStateCompleted:  true,
	RequestStateCancelled:  true,
}

func (s RequestState) IsValid() bool {
	return validRequestStates[s]
}

// Request is a call for work posted by an agent.
type Request struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	State       RequestState `json:"state"`
	Skills      []string     `json:"skills"`
}

func (r *Request) Normalize() {
	if r == nil {
		return
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.State = RequestState(strings.TrimSpace(strings.ToLower(string(r.State))))
	r.Skills = pstrings.DedupeAndTrimLower(r.Skills)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *Request) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}

	if len(r.Title) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "title must be 120 characters or less")
	}
	if len(r.Description) > maxBodyLen {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}

	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if r.State == "" {
		return dErrors.New(dErrors.CodeValidation, "state is required")
	}
	if len(r.Skills) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one skill is required")
	}

	if !r.State.IsValid() {
		return dErrors.New(dErrors.CodeValidation,
			"state must be 'draft', 'published', 'in_progress', 'completed' or 'cancelled'")
	}

	return nil
}

// Offer is a standing offer of capabilities by an agent.
type Offer struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Availability string   `json:"availability"`
}

func (o *Offer) Normalize() {
	if o == nil {
		return
	}
	o.Title = strings.TrimSpace(o.Title)
	o.Description = strings.TrimSpace(o.Description)
	o.Capabilities = pstrings.DedupeAndTrimLower(o.Capabilities)
	o.Availability = strings.TrimSpace(o.Availability)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (o *Offer) Validate() error {
	if o == nil {
		return dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}

	if len(o.Title) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "title must be 120 characters or less")
	}
	if len(o.Description) > maxBodyLen {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}

	if o.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if o.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if len(o.Capabilities) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one capability is required")
	}

	return nil
}

// ServiceType is a shared vocabulary entry agents tag requests and offers
// with.
type ServiceType struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Technical   bool   `json:"technical"`
}

func (t *ServiceType) Normalize() {
	if t == nil {
		return
	}
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (t *ServiceType) Validate() error {
	if t == nil {
		return dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}

	if len(t.Name) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "name must be 120 characters or less")
	}
	if len(t.Description) > maxBodyLen {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}

	if t.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if t.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}

	return nil
}

// User is an agent's marketplace profile. Each agent has at most one; the
// service refuses a second while the first is alive.
type User struct {
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Bio      string   `json:"bio"`
	Email    string   `json:"email"`
	Skills   []string `json:"skills"`
	TimeZone string   `json:"time_zone"`
}

func (u *User) Normalize() {
	if u == nil {
		return
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Nickname = strings.TrimSpace(u.Nickname)
	u.Bio = strings.TrimSpace(u.Bio)
	u.Email = strings.TrimSpace(u.Email)
	u.Skills = pstrings.DedupeAndTrimLower(u.Skills)
	u.TimeZone = strings.TrimSpace(u.TimeZone)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (u *User) Validate() error {
	if u == nil {
		return dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}

	if len(u.Name) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "name must be 120 characters or less")
	}
	if len(u.Nickname) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "nickname must be 120 characters or less")
	}
	if len(u.Bio) > maxBodyLen {
		return dErrors.New(dErrors.CodeValidation, "bio must be 2000 characters or less")
	}

	if u.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if u.Nickname == "" {
		return dErrors.New(dErrors.CodeValidation, "nickname is required")
	}
	if u.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}

	if !govalidator.IsEmail(u.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}

	return nil
}

// Organization is a legal entity agents act on behalf of.
type Organization struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	FullLegalName string   `json:"full_legal_name"`
	Email         string   `json:"email"`
	URLs          []string `json:"urls"`
	Location      string   `json:"location"`
}

func (o *Organization) Normalize() {
	if o == nil {
		return
	}
	o.Name = strings.TrimSpace(o.Name)
	o.Description = strings.TrimSpace(o.Description)
	o.FullLegalName = strings.TrimSpace(o.FullLegalName)
	o.Email = strings.TrimSpace(o.Email)
	o.URLs = pstrings.DedupeAndTrim(o.URLs)
	o.Location = strings.TrimSpace(o.Location)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (o *Organization) Validate() error {
	if o == nil {
		return dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}

	if len(o.Name) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "name must be 120 characters or less")
	}
	if len(o.FullLegalName) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "full legal name must be 120 characters or less")
	}
	if len(o.Description) > maxBodyLen {
		return dErrors.New(dErrors.CodeValidation, "description must be 2000 characters or less")
	}

	if o.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if o.FullLegalName == "" {
		return dErrors.New(dErrors.CodeValidation, "full legal name is required")
	}
	if o.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}

	if !govalidator.IsEmail(o.Email) {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	for _, u := range o.URLs {
		if !govalidator.IsURL(u) {
			return dErrors.Newf(dErrors.CodeValidation, "url %q is invalid", u)
		}
	}

	return nil
}

// DecodePayload parses raw into the payload type for the collection,
// rejecting unknown fields, then normalizes and validates it.
func DecodePayload(c domain.Collection, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch c {
	case domain.CollectionRequests:
		p = &Request{}
	case domain.CollectionOffers:
		p = &Offer{}
	case domain.CollectionServiceTypes:
		p = &ServiceType{}
	case domain.CollectionUsers:
		p = &User{}
	case domain.CollectionOrganizations:
		p = &Organization{}
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown collection %q", c)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed payload")
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
