package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

// Orchestrator runs the provisioning sequence: synthesize a script, create
// the remote resources, persist the agent record. It holds no per-run state
// so concurrent runs are independent.
type Orchestrator struct {
	synthesizer domain.ScriptSynthesizer
	provisioner domain.ResourceProvisioner
	agents      domain.AgentRepository
	logger      *slog.Logger

	now        func() time.Time
	newRunID   func() string
	newAgentID func() uuid.UUID
}

// OrchestratorOption customises an Orchestrator; used by tests.
type OrchestratorOption func(*Orchestrator)

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithRunIDGenerator(gen func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newRunID = gen }
}

func WithAgentIDGenerator(gen func() uuid.UUID) OrchestratorOption {
	return func(o *Orchestrator) { o.newAgentID = gen }
}

func NewOrchestrator(
	synthesizer domain.ScriptSynthesizer,
	provisioner domain.ResourceProvisioner,
	agents domain.AgentRepository,
	logger *slog.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		synthesizer: synthesizer,
		provisioner: provisioner,
		agents:      agents,
		logger:      logger.With("component", "orchestrator"),
		now:         func() time.Time { return time.Now().UTC() },
		newRunID:    func() string { return ulid.Make().String() },
		newAgentID:  uuid.New,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one provisioning run. On failure the returned error is a
// *domain.RunError carrying the last state reached; resources created before
// the failing step are not rolled back here.
func (o *Orchestrator) Run(ctx context.Context, req domain.ProvisioningRequest, entry domain.EntryPoint) (*domain.AgentRecord, error) {
	runID := o.newRunID()
	logger := o.logger.With("run_id", runID, "user_id", req.RequesterID, "entry", string(entry))
	started := time.Now()
	state := domain.RunReceived

	fail := func(err error) (*domain.AgentRecord, error) {
		logger.ErrorContext(ctx, "Provisioning run failed", "state", state, "error", err)
		provisioningRunsCounter.WithLabelValues(string(entry), "failed_"+string(state)).Inc()
		provisioningRunDurationHist.WithLabelValues(string(entry)).Observe(time.Since(started).Seconds())
		return nil, &domain.RunError{RunID: runID, State: state, Err: err}
	}

	logger.InfoContext(ctx, "Provisioning run received", "questions", len(req.Questions))
	if err := req.Validate(); err != nil {
		return fail(err)
	}

	stepStart := time.Now()
	script, err := o.synthesizer.Synthesize(ctx, req.Questions)
	provisioningStepDurationHist.WithLabelValues("synthesize").Observe(time.Since(stepStart).Seconds())
	if err != nil {
		return fail(err)
	}
	state = domain.RunScriptGenerated
	logger.InfoContext(ctx, "Conversation script generated", "state", state, "script_len", len(script))

	stepStart = time.Now()
	res, err := o.provisioner.Provision(ctx, script)
	provisioningStepDurationHist.WithLabelValues("provision").Observe(time.Since(stepStart).Seconds())
	if err != nil {
		return fail(err)
	}
	state = domain.RunResourcesProvisioned
	logger.InfoContext(ctx, "Remote resources provisioned", "state", state,
		"llm_id", res.LLMID, "agent_id", res.AgentID, "phone_number", res.PhoneNumber)

	rec := o.buildRecord(req, res)
	stepStart = time.Now()
	changeType, err := o.agents.Upsert(ctx, rec)
	provisioningStepDurationHist.WithLabelValues("persist").Observe(time.Since(stepStart).Seconds())
	if err != nil {
		return fail(fmt.Errorf("%w: %v", domain.ErrPersistence, err))
	}
	state = domain.RunPersisted

	logger.InfoContext(ctx, "Agent record persisted", "state", state, "agent_record_id", rec.ID, "change", changeType)
	provisioningRunsCounter.WithLabelValues(string(entry), "persisted").Inc()
	provisioningRunDurationHist.WithLabelValues(string(entry)).Observe(time.Since(started).Seconds())
	return rec, nil
}

func (o *Orchestrator) buildRecord(req domain.ProvisioningRequest, res *domain.ProvisionResult) *domain.AgentRecord {
	phone := req.ExistingPhoneNumber
	if phone == "" {
		phone = res.PhoneNumber
	}
	questions := req.Questions
	if questions == nil {
		questions = []string{}
	}
	now := o.now()
	return &domain.AgentRecord{
		ID:                o.newAgentID(),
		UserID:            req.RequesterID,
		PhoneNumber:       phone,
		TwilioPhoneNumber: res.PhoneNumber,
		LLMID:             res.LLMID,
		RetellID:          res.AgentID,
		Questions:         questions,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
