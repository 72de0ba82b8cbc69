// Command agorad runs an agora node: the local ledger, the resolution and
// moderation engines, the HTTP API, and (when brokers are configured) the
// relay that gossips records with other nodes.
package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"agora/internal/admin"
	adminhandler "agora/internal/admin/handler"
	"agora/internal/audit"
	"agora/internal/authz"
	"agora/internal/authz/adapters"
	authzmetrics "agora/internal/authz/metrics"
	"agora/internal/cache"
	cachemetrics "agora/internal/cache/metrics"
	"agora/internal/chain"
	chainmetrics "agora/internal/chain/metrics"
	"agora/internal/events"
	eventsmetrics "agora/internal/events/metrics"
	"agora/internal/ledger"
	"agora/internal/market"
	markethandler "agora/internal/market/handler"
	"agora/internal/platform/config"
	"agora/internal/platform/httpserver"
	"agora/internal/platform/logger"
	"agora/internal/platform/metrics"
	platformredis "agora/internal/platform/redis"
	"agora/internal/relay"
	"agora/internal/status"
	statusmetrics "agora/internal/status/metrics"
	httptransport "agora/internal/transport/http"
	"agora/pkg/domain"
	"agora/pkg/requestcontext"
)

func main() {
	if err := run(); err != nil {
		slog.Error("node exited", "error", err)
		os.Exit(1)
	}
}

// run wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal packages; nothing here should make decisions.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kp, err := nodeKeypair(cfg.Bootstrap, log)
	if err != nil {
		return err
	}
	keys := ledger.NewKeyring(kp)

	store, db, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// With a relay, every local write goes through the tee so the publisher
	// sees it. Foreign records ingested from the broker append to the raw
	// store and never re-enter the outbox.
	var src ledger.Store = store
	var tee *relay.Tee
	if cfg.Relay.Enabled() {
		tee = relay.NewTee(store, 0, log)
		src = tee
	}

	chains := chain.New(src, chain.WithMetrics(chainmetrics.New()))

	var engine *status.Engine
	accounts := adapters.NewAccountAdapter(src, chains,
		adapters.StatusesFunc(func(ctx context.Context, id domain.RecordID) (status.ResolvedStatus, error) {
			return engine.Resolve(ctx, id)
		}))
	gate := authz.New(src, accounts, keys,
		authz.WithLogger(log), authz.WithMetrics(authzmetrics.New()))
	engine = status.NewEngine(src, chains, keys, gate,
		status.WithLogger(log), status.WithMetrics(statusmetrics.New()))

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var backend cache.Backend
	if rdb != nil {
		defer rdb.Close()
		backend = cache.NewRedisBackend(rdb.Client)
		log.Info("cache backend: redis")
	} else {
		backend = cache.NewMemoryBackend()
		log.Info("cache backend: in-process")
	}

	snapshotter := market.NewSnapshotter(chains, engine)
	caches := cache.NewManager(backend, snapshotter.Snapshot,
		cache.WithLogger(log),
		cache.WithMetrics(cachemetrics.New()),
		cache.WithTTL(cfg.Cache.TTL))

	bus := events.NewBus(events.WithLogger(log), events.WithMetrics(eventsmetrics.New()))

	audits := audit.NewService(audit.WithLogger(log))
	auditStore, err := openAuditStore(ctx, cfg.Ledger, db)
	if err != nil {
		return err
	}

	marketSvc := market.NewService(src, chains, engine, gate, keys, caches,
		market.WithLogger(log), market.WithBus(bus), market.WithAudit(audits))
	adminSvc := admin.NewService(src, engine, gate, marketSvc, caches,
		admin.WithLogger(log), admin.WithBus(bus), admin.WithAudit(audits))

	if cfg.Bootstrap.BootstrapAdmin {
		bootCtx := requestcontext.WithAgent(ctx, kp.Agent())
		if err := gate.Bootstrap(bootCtx, kp); err != nil {
			return fmt.Errorf("bootstrap administrator: %w", err)
		}
	}

	workersCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	var wg sync.WaitGroup
	runWorker := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(workersCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("worker stopped", "worker", name, "error", err)
			}
		}()
	}
	runWorker("audit", audit.NewWorker(auditStore, audits.Inbox(), log).Run)

	if cfg.Relay.Enabled() {
		producer, err := relay.NewProducerClient(cfg.Relay.Brokers)
		if err != nil {
			return fmt.Errorf("relay producer: %w", err)
		}
		defer producer.Close()
		// One partition keeps a total order for small deployments; larger
		// ones pre-create the topic and rely on content addressing instead.
		if err := relay.EnsureTopic(ctx, producer, cfg.Relay.Topic, 1, 1); err != nil {
			return err
		}
		consumer, err := relay.NewConsumerClient(cfg.Relay.Brokers, cfg.Relay.Group, cfg.Relay.Topic)
		if err != nil {
			return fmt.Errorf("relay consumer: %w", err)
		}
		defer consumer.Close()

		runWorker("relay-publisher", relay.NewPublisher(producer, cfg.Relay.Topic, tee.Outbox(), log).Run)
		runWorker("relay-ingestor", relay.NewIngestor(store, consumer, log).Run)
		log.Info("relay enabled", "brokers", cfg.Relay.Brokers, "topic", cfg.Relay.Topic)
	}

	handlers := httptransport.Handlers{
		Market: markethandler.New(marketSvc, log),
		Admin:  adminhandler.New(adminSvc, log),
	}
	router := httptransport.NewRouter(handlers, log, metrics.New())
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("agora node listening",
		"addr", cfg.Addr, "agent", kp.Agent(), "ledger", cfg.Ledger.Backend)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	cancelWorkers()
	wg.Wait()
	return nil
}

// nodeKeypair derives the node's signing identity from the configured seed,
// or generates a throwaway one so a bare `agorad` still comes up.
func nodeKeypair(cfg config.BootstrapConfig, log *slog.Logger) (ledger.Keypair, error) {
	if cfg.AgentSeed == "" {
		kp, err := ledger.GenerateKeypair()
		if err != nil {
			return ledger.Keypair{}, err
		}
		log.Warn("AGORA_AGENT_SEED not set, generated an ephemeral identity",
			"agent", kp.Agent())
		return kp, nil
	}
	seed, err := hex.DecodeString(cfg.AgentSeed)
	if err != nil {
		return ledger.Keypair{}, fmt.Errorf("AGORA_AGENT_SEED: %w", err)
	}
	kp, err := ledger.KeypairFromSeed(seed)
	if err != nil {
		return ledger.Keypair{}, fmt.Errorf("AGORA_AGENT_SEED: %w", err)
	}
	return kp, nil
}

// openLedger picks the record store. The returned *sql.DB is nil for the
// in-memory backend; the caller owns closing it.
func openLedger(ctx context.Context, cfg config.LedgerConfig) (ledger.Store, *sql.DB, error) {
	switch cfg.Backend {
	case config.LedgerMemory:
		return ledger.NewMemoryStore(), nil, nil
	case config.LedgerSQLite:
		db, err := ledger.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := ledger.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil
	case config.LedgerPostgres:
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres ledger: %w", err)
		}
		store, err := ledger.NewPostgresStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// openAuditStore shares the postgres pool with the ledger; other backends
// keep audit events in memory.
func openAuditStore(ctx context.Context, cfg config.LedgerConfig, db *sql.DB) (audit.Store, error) {
	if cfg.Backend == config.LedgerPostgres {
		return audit.NewPostgresStore(ctx, db)
	}
	return audit.NewMemoryStore(), nil
}
