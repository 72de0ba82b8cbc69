package moderation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the e2e harness these steps need.
type TestContext interface {
	FoundAdministrator(name string) error
	RegisterAgent(name string) error
	Admin() string
	AgentID(name string) (string, error)

	POST(path string, body any, agent string) error
	GET(path string, agent string) error
	PUT(path string, body any, agent string) error
	LastStatus() int
	GetResponseField(field string) (any, error)
	ResponseItems() ([]map[string]any, error)

	SetListingID(id string)
	ListingID() string
}

// RegisterSteps registers the moderation step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &moderationSteps{tc: tc}

	ctx.Step(`^the marketplace has a founding administrator "([^"]*)"$`, steps.foundingAdministrator)
	ctx.Step(`^an approved member "([^"]*)"$`, steps.approvedMember)
	ctx.Step(`^"([^"]*)" submits a request titled "([^"]*)"$`, steps.submitRequest)
	ctx.Step(`^"([^"]*)" approves the listing$`, steps.approveListing)
	ctx.Step(`^"([^"]*)" tries to approve the listing$`, steps.tryApproveListing)
	ctx.Step(`^"([^"]*)" rejects the listing with reason "([^"]*)"$`, steps.rejectListing)
	ctx.Step(`^"([^"]*)" resubmits the listing$`, steps.resubmitListing)
	ctx.Step(`^"([^"]*)" suspends the listing for (\d+) days with reason "([^"]*)"$`, steps.suspendListing)
	ctx.Step(`^"([^"]*)" unsuspends the listing$`, steps.unsuspendListing)
	ctx.Step(`^"([^"]*)" grants "([^"]*)" to "([^"]*)"$`, steps.grantRole)
	ctx.Step(`^the listing is "([^"]*)"$`, steps.listingState)
	ctx.Step(`^the moderation queue for "([^"]*)" lists "([^"]*)"$`, steps.queueLists)
	ctx.Step(`^"([^"]*)" sees "([^"]*)" in the "([^"]*)" queue$`, steps.queueListsFor)
	ctx.Step(`^the moderation queue for "([^"]*)" is empty$`, steps.queueEmpty)
	ctx.Step(`^the action is denied$`, steps.actionDenied)
}

type moderationSteps struct {
	tc TestContext
}

func (s *moderationSteps) foundingAdministrator(ctx context.Context, name string) error {
	return s.tc.FoundAdministrator(name)
}

// approvedMember registers an agent, creates their profile over the API and
// has the founding administrator approve it, all through the same endpoints
// a real deployment uses.
func (s *moderationSteps) approvedMember(ctx context.Context, name string) error {
	if err := s.tc.RegisterAgent(name); err != nil {
		return err
	}
	profile := map[string]any{
		"name":     name,
		"nickname": name,
		"email":    name + "@example.com",
	}
	if err := s.tc.POST("/v1/users", profile, name); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("expected 201 creating %s's profile, got %d", name, s.tc.LastStatus())
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	if err := s.tc.POST(fmt.Sprintf("/v1/users/%v/status", id),
		map[string]any{"action": "approve"}, s.tc.Admin()); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("expected 200 approving %s's profile, got %d", name, s.tc.LastStatus())
	}
	return nil
}

func (s *moderationSteps) submitRequest(ctx context.Context, author, title string) error {
	body := map[string]any{
		"title":       title,
		"description": "as described",
		"state":       "published",
		"skills":      []string{"general"},
	}
	if err := s.tc.POST("/v1/requests", body, author); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("expected 201 submitting %q, got %d", title, s.tc.LastStatus())
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetListingID(fmt.Sprintf("%v", id))
	return nil
}

func (s *moderationSteps) statusAction(actor string, body map[string]any, expect int) error {
	if err := s.tc.POST("/v1/requests/"+s.tc.ListingID()+"/status", body, actor); err != nil {
		return err
	}
	if expect > 0 && s.tc.LastStatus() != expect {
		return fmt.Errorf("expected %d applying %v, got %d", expect, body["action"], s.tc.LastStatus())
	}
	return nil
}

func (s *moderationSteps) approveListing(ctx context.Context, actor string) error {
	return s.statusAction(actor, map[string]any{"action": "approve"}, http.StatusOK)
}

func (s *moderationSteps) tryApproveListing(ctx context.Context, actor string) error {
	return s.statusAction(actor, map[string]any{"action": "approve"}, 0)
}

func (s *moderationSteps) rejectListing(ctx context.Context, actor, reason string) error {
	return s.statusAction(actor, map[string]any{"action": "reject", "reason": reason}, http.StatusOK)
}

func (s *moderationSteps) resubmitListing(ctx context.Context, actor string) error {
	return s.statusAction(actor, map[string]any{"action": "resubmit"}, http.StatusOK)
}

func (s *moderationSteps) suspendListing(ctx context.Context, actor string, days int, reason string) error {
	return s.statusAction(actor,
		map[string]any{"action": "suspend", "days": days, "reason": reason}, http.StatusOK)
}

func (s *moderationSteps) unsuspendListing(ctx context.Context, actor string) error {
	return s.statusAction(actor, map[string]any{"action": "unsuspend"}, http.StatusOK)
}

func (s *moderationSteps) grantRole(ctx context.Context, granter, role, subject string) error {
	id, err := s.tc.AgentID(subject)
	if err != nil {
		return err
	}
	if err := s.tc.PUT("/v1/admin/roles/"+id, map[string]any{"role": role}, granter); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("expected 200 granting %s to %s, got %d", role, subject, s.tc.LastStatus())
	}
	return nil
}

func (s *moderationSteps) listingState(ctx context.Context, want string) error {
	if err := s.tc.GET("/v1/requests/"+s.tc.ListingID(), s.tc.Admin()); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("expected 200 reading the listing, got %d", s.tc.LastStatus())
	}
	field, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	status, ok := field.(map[string]any)
	if !ok {
		return fmt.Errorf("status is not an object: %v", field)
	}
	if state, _ := status["state"].(string); state != want {
		return fmt.Errorf("expected the listing %q, got %q", want, state)
	}
	return nil
}

func (s *moderationSteps) queueLists(ctx context.Context, collection, title string) error {
	return s.queueListsFor(ctx, s.tc.Admin(), title, collection)
}

// queueListsFor reads the queue as the named viewer; moderators must see it
// with their own role, not the administrator's.
func (s *moderationSteps) queueListsFor(ctx context.Context, viewer, title, collection string) error {
	items, err := s.queue(collection, viewer)
	if err != nil {
		return err
	}
	for _, item := range items {
		if payload, ok := item["payload"].(map[string]any); ok && payload["title"] == title {
			return nil
		}
	}
	return fmt.Errorf("%q not in the %s queue (%d items)", title, collection, len(items))
}

func (s *moderationSteps) queueEmpty(ctx context.Context, collection string) error {
	items, err := s.queue(collection, s.tc.Admin())
	if err != nil {
		return err
	}
	if len(items) != 0 {
		return fmt.Errorf("expected an empty %s queue, got %d items", collection, len(items))
	}
	return nil
}

func (s *moderationSteps) queue(collection, viewer string) ([]map[string]any, error) {
	if err := s.tc.GET("/v1/admin/queue/"+collection, viewer); err != nil {
		return nil, err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return nil, fmt.Errorf("expected 200 reading the queue, got %d", s.tc.LastStatus())
	}
	return s.tc.ResponseItems()
}

func (s *moderationSteps) actionDenied(ctx context.Context) error {
	if s.tc.LastStatus() != http.StatusForbidden {
		return fmt.Errorf("expected 403, got %d", s.tc.LastStatus())
	}
	return nil
}
