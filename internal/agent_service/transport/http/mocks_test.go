package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testValidator() *validator.Validate { return validator.New() }

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req domain.ProvisioningRequest, entry domain.EntryPoint) (*domain.AgentRecord, error) {
	args := m.Called(ctx, req, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentRecord), args.Error(1)
}

type MockAgentRepository struct {
	mock.Mock
}

func (m *MockAgentRepository) Upsert(ctx context.Context, rec *domain.AgentRecord) (domain.ChangeType, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(domain.ChangeType), args.Error(1)
}

func (m *MockAgentRepository) Insert(ctx context.Context, rec *domain.AgentRecord) (*domain.AgentRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentRecord), args.Error(1)
}

func (m *MockAgentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AgentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentRecord), args.Error(1)
}

func (m *MockAgentRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.AgentRecord, error) {
	args := m.Called(ctx, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentRecord), args.Error(1)
}

func (m *MockAgentRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.AgentRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AgentRecord), args.Error(1)
}

type MockPaymentFlow struct {
	mock.Mock
}

func (m *MockPaymentFlow) CreateCheckout(ctx context.Context, req domain.ProvisioningRequest) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

func (m *MockPaymentFlow) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) UpdatePlan(ctx context.Context, id string, plan domain.Plan) error {
	return m.Called(ctx, id, plan).Error(0)
}
