// Command bidfoundry runs one adversarial review session over a proposal
// draft: proposers and challengers exchange structured critiques and
// responses under a bounded round budget, and the terminal result is
// printed as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/actors"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/audit"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/config"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/consensus"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/llm"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/observability/metrics"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/orchestrator"
	"github.com/MichaelBlackwell/BidFoundry-sub000/internal/rules"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to the YAML configuration file")
		documentPath = flag.String("document", "", "path to an existing draft to seed the review (optional)")
		topic        = flag.String("topic", "", "topic of the proposal under review")
		documentID   = flag.String("document-id", "", "document identifier (defaults to a new UUID)")
		metricsAddr  = flag.String("metrics-addr", "", "address to expose Prometheus metrics on (optional)")
	)
	flag.Parse()

	logger := logrus.New()
	if err := run(logger, *configPath, *documentPath, *topic, *documentID, *metricsAddr); err != nil {
		logger.WithError(err).Fatal("review run failed")
	}
}

func run(logger *logrus.Logger, configPath, documentPath, topic, documentID, metricsAddr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := configureLogger(logger, cfg.Logging); err != nil {
		return err
	}
	if topic == "" {
		return fmt.Errorf("-topic is required")
	}
	if documentID == "" {
		documentID = uuid.New().String()
	}

	var seed string
	if documentPath != "" {
		data, err := os.ReadFile(documentPath)
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		seed = string(data)
	}

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(promRegistry)
	if metricsAddr != "" {
		go serveMetrics(logger, metricsAddr, promRegistry)
	}

	evaluator := consensus.New(consensus.Config{
		ConsensusThresholdPct:         cfg.Consensus.ConsensusThresholdPct,
		EscalationConfidenceThreshold: cfg.Consensus.EscalationConfidenceThreshold,
	}, nil)

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(collector),
	}
	if seed != "" {
		opts = append(opts, orchestrator.WithInitialContent(seed))
	}

	session := orchestrator.NewSession(orchestrator.Config{
		MaxRounds:      cfg.Session.MaxRounds,
		ActorTimeout:   cfg.Session.ActorTimeout,
		MaxParallelism: cfg.Session.MaxParallelism,
	}, documentID, topic, registry, evaluator, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := session.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.Archive.Enabled {
		if err := archiveTrail(ctx, cfg.Archive.Path, session.Trail()); err != nil {
			// Archival is best effort; the result still goes to stdout.
			logger.WithError(err).Warn("failed to archive session trail")
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))

	if result.State == orchestrator.StateEscalated {
		logger.WithField("reason", result.EscalationReason).
			Warn("session escalated to human review")
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.NewLoader(path).Load()
}

func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// buildRegistry wires the configured actors to the generation client and
// rule engine. With no actors configured, a standard bench of one proposer
// and two challengers is used.
func buildRegistry(cfg *config.Config, logger *logrus.Logger) (*actors.Registry, error) {
	client := llm.NewClient(llm.ClientConfig{
		BaseURL: cfg.Generation.BaseURL,
		APIKey:  cfg.Generation.APIKey,
		Model:   cfg.Generation.Model,
	}, logger)

	genCfg := llm.DefaultGenerateConfig()
	genCfg.Temperature = cfg.Generation.Temperature
	genCfg.MaxTokens = cfg.Generation.MaxTokens
	genCfg.Timeout = cfg.Generation.Timeout
	genCfg.MaxRetries = cfg.Generation.MaxRetries
	genCfg.RetryDelay = cfg.Generation.RetryDelay

	var engine rules.Engine
	switch cfg.Rules.Mode {
	case "http":
		engine = rules.NewHTTPEngine(cfg.Rules.BaseURL, cfg.Rules.Timeout)
	default:
		engine = rules.NewStaticEngine(nil)
	}

	declared := cfg.Actors
	if len(declared) == 0 {
		declared = []config.ActorConfig{
			{ID: "lead-writer", Role: "proposer"},
			{ID: "red-team-compliance", Role: "challenger", Focus: "compliance and regulatory exposure"},
			{ID: "red-team-feasibility", Role: "challenger", Focus: "feasibility and evidence"},
		}
	}

	registry := actors.NewRegistry()
	for _, a := range declared {
		var actor actors.Actor
		switch a.Role {
		case "proposer":
			actor = actors.NewProposer(a.ID, client, engine, genCfg, logger)
		case "challenger":
			actor = actors.NewChallenger(a.ID, a.Focus, client, genCfg, logger)
		default:
			return nil, fmt.Errorf("unknown actor role %q for %s", a.Role, a.ID)
		}
		if err := registry.Register(actor); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func serveMetrics(logger *logrus.Logger, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.WithField("addr", addr).Info("serving metrics")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Warn("metrics server stopped")
	}
}

func archiveTrail(ctx context.Context, path string, trail *audit.Trail) error {
	store, err := audit.OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	return store.Archive(ctx, trail)
}
