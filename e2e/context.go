package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"agora/internal/admin"
	adminhandler "agora/internal/admin/handler"
	"agora/internal/authz"
	"agora/internal/authz/adapters"
	"agora/internal/cache"
	"agora/internal/chain"
	"agora/internal/ledger"
	"agora/internal/market"
	markethandler "agora/internal/market/handler"
	"agora/internal/platform/middleware"
	"agora/internal/status"
	httptransport "agora/internal/transport/http"
	"agora/pkg/domain"
	"agora/pkg/requestcontext"
)

// TestContext runs one scenario against a complete in-memory node behind
// httptest, registering agents on demand and keeping the last response for
// the assertion steps.
type TestContext struct {
	server *httptest.Server
	gate   *authz.Gate
	keys   *ledger.Keyring

	agents map[string]ledger.Keypair
	admin  string

	listingID  string
	lastStatus int
	lastBody   []byte
}

// NewTestContext wires the full service stack over an in-memory ledger and
// starts an HTTP server for it.
func NewTestContext() *TestContext {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	tc := &TestContext{
		keys:   ledger.NewKeyring(),
		agents: make(map[string]ledger.Keypair),
	}

	store := ledger.NewMemoryStore()
	chains := chain.New(store)

	var engine *status.Engine
	accounts := adapters.NewAccountAdapter(store, chains,
		adapters.StatusesFunc(func(ctx context.Context, id domain.RecordID) (status.ResolvedStatus, error) {
			return engine.Resolve(ctx, id)
		}))
	tc.gate = authz.New(store, accounts, tc.keys, authz.WithLogger(quiet))
	engine = status.NewEngine(store, chains, tc.keys, tc.gate, status.WithLogger(quiet))

	snapshotter := market.NewSnapshotter(chains, engine)
	caches := cache.NewManager(cache.NewMemoryBackend(), snapshotter.Snapshot, cache.WithLogger(quiet))
	marketSvc := market.NewService(store, chains, engine, tc.gate, tc.keys, caches,
		market.WithLogger(quiet))
	adminSvc := admin.NewService(store, engine, tc.gate, marketSvc, caches,
		admin.WithLogger(quiet))

	router := httptransport.NewRouter(httptransport.Handlers{
		Market: markethandler.New(marketSvc, quiet),
		Admin:  adminhandler.New(adminSvc, quiet),
	}, quiet, nil)
	tc.server = httptest.NewServer(router)
	return tc
}

// Close shuts the scenario's server down.
func (tc *TestContext) Close() {
	tc.server.Close()
}

// RegisterAgent derives a deterministic keypair for the named persona and
// registers it with the node's keyring.
func (tc *TestContext) RegisterAgent(name string) error {
	if _, ok := tc.agents[name]; ok {
		return nil
	}
	seed := sha256.Sum256([]byte("agora-e2e-" + name))
	kp, err := ledger.KeypairFromSeed(seed[:])
	if err != nil {
		return fmt.Errorf("derive keypair for %s: %w", name, err)
	}
	tc.keys.Add(kp)
	tc.agents[name] = kp
	return nil
}

// FoundAdministrator seats the named persona as the founding administrator,
// the way a node's bootstrap configuration would.
func (tc *TestContext) FoundAdministrator(name string) error {
	if err := tc.RegisterAgent(name); err != nil {
		return err
	}
	kp := tc.agents[name]
	ctx := requestcontext.WithAgent(context.Background(), kp.Agent())
	if err := tc.gate.Bootstrap(ctx, kp); err != nil {
		return fmt.Errorf("bootstrap %s: %w", name, err)
	}
	tc.admin = name
	return nil
}

// Admin names the founding administrator persona.
func (tc *TestContext) Admin() string { return tc.admin }

// AgentID returns the hex agent id of a registered persona.
func (tc *TestContext) AgentID(name string) (string, error) {
	kp, ok := tc.agents[name]
	if !ok {
		return "", fmt.Errorf("unknown agent %q", name)
	}
	return string(kp.Agent()), nil
}

func (tc *TestContext) POST(path string, body any, agent string) error {
	return tc.do(http.MethodPost, path, body, agent)
}

func (tc *TestContext) GET(path string, agent string) error {
	return tc.do(http.MethodGet, path, nil, agent)
}

func (tc *TestContext) PUT(path string, body any, agent string) error {
	return tc.do(http.MethodPut, path, body, agent)
}

func (tc *TestContext) do(method, path string, body any, agent string) error {
	kp, ok := tc.agents[agent]
	if !ok {
		return fmt.Errorf("unknown agent %q", agent)
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, tc.server.URL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderActingAgent, string(kp.Agent()))

	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// LastStatus reports the status code of the most recent request.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// GetResponseField pulls a top-level field out of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(tc.lastBody, &payload); err != nil {
		return nil, fmt.Errorf("response is not an object: %w (%s)", err, tc.lastBody)
	}
	v, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}

// ResponseItems decodes the last response as a JSON array of objects.
func (tc *TestContext) ResponseItems() ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(tc.lastBody, &items); err != nil {
		return nil, fmt.Errorf("response is not an array: %w (%s)", err, tc.lastBody)
	}
	return items, nil
}

// SetListingID remembers the listing under test.
func (tc *TestContext) SetListingID(id string) { tc.listingID = id }

// ListingID returns the listing under test.
func (tc *TestContext) ListingID() string { return tc.listingID }
