package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinyland-inc/hookclaw/cmd/hookclaw/internal"
	"github.com/tinyland-inc/hookclaw/pkg/background"
	"github.com/tinyland-inc/hookclaw/pkg/config"
	"github.com/tinyland-inc/hookclaw/pkg/delivery"
	"github.com/tinyland-inc/hookclaw/pkg/dispatcher"
	"github.com/tinyland-inc/hookclaw/pkg/health"
	"github.com/tinyland-inc/hookclaw/pkg/idempotency"
	"github.com/tinyland-inc/hookclaw/pkg/ledger"
	"github.com/tinyland-inc/hookclaw/pkg/logger"
	"github.com/tinyland-inc/hookclaw/pkg/metrics"
	"github.com/tinyland-inc/hookclaw/pkg/providers"
	"github.com/tinyland-inc/hookclaw/pkg/responder"
	"github.com/tinyland-inc/hookclaw/pkg/scheduler"
	"github.com/tinyland-inc/hookclaw/pkg/signature"
	"github.com/tinyland-inc/hookclaw/pkg/store"
	"github.com/tinyland-inc/hookclaw/pkg/tools"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	kv, blob, err := buildStores(cfg)
	if err != nil {
		return fmt.Errorf("error setting up storage: %w", err)
	}

	engine, modelID, err := providers.CreateEngine(cfg)
	if err != nil {
		if !errors.Is(err, providers.ErrNotConfigured) {
			return fmt.Errorf("error creating provider: %w", err)
		}
		fmt.Println("⚠ No provider API key configured; replies will say so")
	}
	if modelID != "" {
		cfg.Responder.Model = modelID
	}

	ledgerStore := ledger.NewStore(blob, cfg.Ledger.Namespace)

	var sched *scheduler.Service
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewService(cfg.Scheduler.StorePath)
	}

	resp := responder.New(engine, tools.DefaultRegistry(), responder.Options{
		Model:             cfg.Responder.Model,
		MaxTokens:         cfg.Responder.MaxTokens,
		MaxToolIterations: cfg.Responder.MaxToolIterations,
	})

	sender := delivery.NewClient(cfg.Slack.BotToken,
		delivery.WithMaxAttempts(cfg.Delivery.MaxAttempts))

	group := background.NewTaskGroup()

	disp := dispatcher.New(dispatcher.Deps{
		Verifier:    verifierFor(cfg),
		HasBotToken: cfg.Slack.BotToken != "",
		Guard:       idempotency.NewGuard(kv),
		Responder:   resp,
		Sender:      sender,
		Tasks:       group,
		Ledger:      ledgerStore,
		Scheduler:   sched,
		AllowFrom:   cfg.Slack.AllowFrom,
	})

	if sched != nil {
		// Fired jobs run through the same responder and delivery path as
		// webhook events.
		sched.SetOnJob(func(job *scheduler.Job) {
			group.Go("scheduled:"+job.ID, func(ctx context.Context) {
				inv := tools.Invocation{
					Ledger:    ledgerStore,
					Scheduler: sched,
					Identity:  job.UserID,
					ChannelID: job.ChannelID,
				}
				reply := resp.Respond(ctx, job.Prompt, inv)
				if err := sender.Send(ctx, job.ChannelID, reply, ""); err != nil {
					logger.ErrorCF("serve", "Scheduled reply delivery failed", map[string]any{
						"job_id": job.ID,
						"error":  err.Error(),
					})
				}
			})
		})
		if err := sched.Start(); err != nil {
			return fmt.Errorf("error starting scheduler: %w", err)
		}
		fmt.Println("✓ Scheduler started")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	server := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port)
	server.Handle("/slack/events", disp)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("serve", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()
	server.SetReady(true)

	fmt.Printf("✓ Gateway listening on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("  • webhook:  /slack/events")
	fmt.Println("  • health:   /health, /ready")
	fmt.Println("  • metrics:  /metrics")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	server.SetReady(false)
	if err := server.Stop(shutdownCtx); err != nil {
		logger.ErrorCF("serve", "HTTP shutdown error", map[string]any{"error": err.Error()})
	}
	if sched != nil {
		sched.Stop()
	}
	if err := group.Close(shutdownTimeout); err != nil {
		logger.WarnCF("serve", "Background tasks did not drain", map[string]any{"error": err.Error()})
	}
	fmt.Println("✓ Gateway stopped")

	return nil
}

func verifierFor(cfg *config.Config) *signature.Verifier {
	if cfg.Slack.SigningSecret == "" {
		return nil
	}
	return signature.NewVerifier(cfg.Slack.SigningSecret)
}

// buildStores picks Redis for both idempotency marks and ledgers when
// configured, and memory KV plus file-backed ledgers otherwise.
func buildStores(cfg *config.Config) (store.KV, store.Blob, error) {
	if cfg.Redis.Enabled() {
		r, err := store.NewRedis(store.RedisOpts{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		fmt.Printf("✓ Redis storage at %s\n", cfg.Redis.Addr)
		return r, r.AsBlob(), nil
	}

	blob, err := store.NewFileBlob(cfg.Ledger.Dir)
	if err != nil {
		return nil, nil, err
	}
	fmt.Printf("✓ File-backed ledgers in %s\n", cfg.Ledger.Dir)
	return store.NewMemory(), blob, nil
}
