// Package bootstrap assembles the agent service from configuration. It is
// shared by the server binary and agentctl so both wire the same stack.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/llm"
	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/notifier"
	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/paymentgateway"
	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/voiceplatform"
	"github.com/contractor-agent/golang_services/internal/agent_service/app"
	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
	"github.com/contractor-agent/golang_services/internal/agent_service/repository/postgres"
	"github.com/contractor-agent/golang_services/internal/agent_service/repository/sqlite"
	"github.com/contractor-agent/golang_services/internal/platform/config"
	"github.com/contractor-agent/golang_services/internal/platform/database"
	"github.com/contractor-agent/golang_services/internal/platform/messagebroker"
)

// Store holds the repositories for the configured driver. Profiles is nil in
// sqlite mode, which has no auth subsystem behind it.
type Store struct {
	Agents   domain.AgentRepository
	Profiles domain.ProfileRepository
	Close    func()
}

// OpenStore connects to the configured store and applies the embedded schema.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewDBPool(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateTx(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating postgres: %w", err)
		}
		return &Store{
			Agents:   postgres.NewPgAgentRepository(pool, logger),
			Profiles: postgres.NewPgProfileRepository(pool, logger),
			Close:    pool.Close,
		}, nil
	case config.StoreDriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "SQLite store ready", "path", cfg.SQLitePath)
		return &Store{
			Agents: sqlite.NewAgentRepository(db, logger),
			Close:  func() { _ = db.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewNotifier returns a NATS-backed notifier when NATS_URL is set and an
// in-process one otherwise. The returned func releases the connection.
func NewNotifier(cfg *config.Config, logger *slog.Logger, appName string) (domain.ChangeNotifier, func(), error) {
	if cfg.NATSUrl == "" {
		logger.Info("NATS_URL not set, using in-process change notifier")
		return notifier.NewMemoryNotifier(logger), func() {}, nil
	}
	client, err := messagebroker.NewNATSClient(cfg.NATSUrl, logger, appName)
	if err != nil {
		return nil, nil, err
	}
	return notifier.NewNATSNotifier(client, logger), client.Close, nil
}

// NewOrchestrator builds the provisioning pipeline on top of agents, which
// should already be wrapped for change notification.
func NewOrchestrator(cfg *config.Config, agents domain.AgentRepository, logger *slog.Logger) (*app.Orchestrator, error) {
	synth := llm.NewOpenAISynthesizer(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
	}, logger)

	voice, err := voiceplatform.NewClient(voiceplatform.Config{
		BaseURL:                  cfg.VoiceAPIBaseURL,
		APIKey:                   cfg.VoiceAPIKey,
		RequestTimeout:           cfg.VoiceRequestTimeout,
		Compensate:               cfg.ProvisioningCompensate,
		DataCollectionWebhookURL: cfg.DataCollectionWebhookURL,
	}, nil, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("voice platform client: %w", err)
	}

	return app.NewOrchestrator(synth, voice, agents, logger), nil
}

// NewPaymentService wires the Stripe gateway to runner.
func NewPaymentService(cfg *config.Config, runner app.Runner, profiles domain.ProfileRepository, logger *slog.Logger) *app.PaymentService {
	gateway := paymentgateway.NewStripeGateway(paymentgateway.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIURL:        cfg.StripeAPIURL,
		PublicBaseURL: cfg.PublicBaseURL,
		PriceCents:    cfg.CheckoutPriceCents,
		Currency:      cfg.CheckoutCurrency,
	}, logger)
	return app.NewPaymentService(gateway, runner, profiles, logger)
}
