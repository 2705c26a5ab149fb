package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

var (
	fixedNow     = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	fixedAgentID = uuid.MustParse("6f1c2a5e-8b1d-4b7e-9a57-3f2f6d0f4c11")
)

type orchestratorFixture struct {
	synth *MockSynthesizer
	prov  *MockProvisioner
	repo  *MockAgentRepository
	orch  *Orchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		synth: new(MockSynthesizer),
		prov:  new(MockProvisioner),
		repo:  new(MockAgentRepository),
	}
	f.orch = NewOrchestrator(f.synth, f.prov, f.repo, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return fixedNow }),
		WithRunIDGenerator(func() string { return "run-1" }),
		WithAgentIDGenerator(func() uuid.UUID { return fixedAgentID }),
	)
	return f
}

var provisioned = &domain.ProvisionResult{LLMID: "L1", AgentID: "A1", PhoneNumber: "+15550001111"}

func TestOrchestrator_Run_EndToEnd(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()
	questions := []string{"Q1", "Q2"}

	f.synth.On("Synthesize", ctx, questions).Return(domain.ConversationScript("SCRIPT"), nil).Once()
	f.prov.On("Provision", ctx, domain.ConversationScript("SCRIPT")).Return(provisioned, nil).Once()

	want := &domain.AgentRecord{
		ID:                fixedAgentID,
		UserID:            "u1",
		PhoneNumber:       "+15550001111",
		TwilioPhoneNumber: "+15550001111",
		LLMID:             "L1",
		RetellID:          "A1",
		Questions:         questions,
		CreatedAt:         fixedNow,
		UpdatedAt:         fixedNow,
	}
	f.repo.On("Upsert", ctx, want).Return(domain.ChangeInsert, nil).Once()

	rec, err := f.orch.Run(ctx, domain.ProvisioningRequest{Questions: questions, RequesterID: "u1"}, domain.EntryDirect)
	require.NoError(t, err)
	assert.Equal(t, want, rec)

	f.synth.AssertExpectations(t)
	f.prov.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func TestOrchestrator_Run_ExistingPhoneNumberIsRecordKey(t *testing.T) {
	f := newOrchestratorFixture()
	f.synth.On("Synthesize", mock.Anything, mock.Anything).Return(domain.ConversationScript("SCRIPT"), nil)
	f.prov.On("Provision", mock.Anything, mock.Anything).Return(provisioned, nil)

	var saved *domain.AgentRecord
	f.repo.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.AgentRecord) }).
		Return(domain.ChangeUpdate, nil).Once()

	_, err := f.orch.Run(context.Background(), domain.ProvisioningRequest{
		Questions:           []string{"Q1"},
		RequesterID:         "u1",
		ExistingPhoneNumber: "+15559998888",
	}, domain.EntryWebhook)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "+15559998888", saved.PhoneNumber)
	assert.Equal(t, "+15550001111", saved.TwilioPhoneNumber)
}

func TestOrchestrator_Run_NilQuestionsAllowed(t *testing.T) {
	f := newOrchestratorFixture()
	f.synth.On("Synthesize", mock.Anything, []string(nil)).Return(domain.ConversationScript(""), nil).Once()
	f.prov.On("Provision", mock.Anything, domain.ConversationScript("")).Return(provisioned, nil).Once()
	f.repo.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *domain.AgentRecord) bool {
		return rec.Questions != nil && len(rec.Questions) == 0
	})).Return(domain.ChangeInsert, nil).Once()

	_, err := f.orch.Run(context.Background(), domain.ProvisioningRequest{RequesterID: "u1"}, domain.EntryCLI)
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestOrchestrator_Run_ValidationFailure(t *testing.T) {
	f := newOrchestratorFixture()

	_, err := f.orch.Run(context.Background(), domain.ProvisioningRequest{Questions: []string{"Q1"}}, domain.EntryDirect)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var runErr *domain.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "run-1", runErr.RunID)
	assert.Equal(t, domain.RunReceived, runErr.State)
	f.synth.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything)
}

func TestOrchestrator_Run_GenerationFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.synth.On("Synthesize", mock.Anything, mock.Anything).
		Return(domain.ConversationScript(""), fmt.Errorf("%w: upstream 503", domain.ErrGeneration)).Once()

	_, err := f.orch.Run(context.Background(), domain.ProvisioningRequest{Questions: []string{"Q1"}, RequesterID: "u1"}, domain.EntryDirect)
	assert.ErrorIs(t, err, domain.ErrGeneration)

	var runErr *domain.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, domain.RunReceived, runErr.State)
	f.prov.AssertNotCalled(t, "Provision", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestOrchestrator_Run_ProvisioningFailureLeavesNothingPersisted(t *testing.T) {
	f := newOrchestratorFixture()
	f.synth.On("Synthesize", mock.Anything, mock.Anything).Return(domain.ConversationScript("SCRIPT"), nil).Once()
	f.prov.On("Provision", mock.Anything, mock.Anything).
		Return(nil, &domain.ResourceCreationError{Step: domain.StepAgent, StatusCode: 500, Err: errors.New("boom")}).Once()

	_, err := f.orch.Run(context.Background(), domain.ProvisioningRequest{Questions: []string{"Q1"}, RequesterID: "u1"}, domain.EntryDirect)
	assert.ErrorIs(t, err, domain.ErrResourceCreation)

	var rce *domain.ResourceCreationError
	require.True(t, errors.As(err, &rce))
	assert.Equal(t, domain.StepAgent, rce.Step)

	var runErr *domain.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, domain.RunScriptGenerated, runErr.State)
	f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestOrchestrator_Run_PersistenceFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.synth.On("Synthesize", mock.Anything, mock.Anything).Return(domain.ConversationScript("SCRIPT"), nil).Once()
	f.prov.On("Provision", mock.Anything, mock.Anything).Return(provisioned, nil).Once()
	f.repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.ChangeType(""), errors.New("unique violation")).Once()

	_, err := f.orch.Run(context.Background(), domain.ProvisioningRequest{Questions: []string{"Q1"}, RequesterID: "u1"}, domain.EntryDirect)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	var runErr *domain.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, domain.RunResourcesProvisioned, runErr.State)
}

func TestOrchestrator_Run_ConcurrentRunsAreIndependent(t *testing.T) {
	synth := new(MockSynthesizer)
	prov := new(MockProvisioner)
	repo := new(MockAgentRepository)
	orch := NewOrchestrator(synth, prov, repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

	synth.On("Synthesize", mock.Anything, mock.Anything).Return(domain.ConversationScript("SCRIPT"), nil)
	prov.On("Provision", mock.Anything, mock.Anything).Return(provisioned, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(domain.ChangeInsert, nil)

	const runs = 10
	var wg sync.WaitGroup
	ids := make([]uuid.UUID, runs)
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := orch.Run(context.Background(), domain.ProvisioningRequest{
				Questions:   []string{fmt.Sprintf("Q%d", i)},
				RequesterID: fmt.Sprintf("u%d", i),
			}, domain.EntryDirect)
			errs[i] = err
			if rec != nil {
				ids[i] = rec.ID
			}
		}(i)
	}
	wg.Wait()

	seen := map[uuid.UUID]bool{}
	for i := 0; i < runs; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]], "record ids must be unique")
		seen[ids[i]] = true
	}
	repo.AssertNumberOfCalls(t, "Upsert", runs)
}
