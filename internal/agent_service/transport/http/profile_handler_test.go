package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
	"github.com/contractor-agent/golang_services/internal/agent_service/middleware"
)

func serveProfile(t *testing.T, profiles *MockProfileRepository, agents *MockAgentRepository, user *middleware.AuthenticatedUser) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewProfileHandler(profiles, agents, testLogger()).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestProfileHandler_GetProfile(t *testing.T) {
	profiles := new(MockProfileRepository)
	agents := new(MockAgentRepository)
	profiles.On("GetByID", mock.Anything, "u1").Return(&domain.Profile{ID: "u1", Email: "u1@example.com", Plan: domain.PlanPaid}, nil).Once()
	agents.On("ListByUserID", mock.Anything, "u1").Return([]*domain.AgentRecord{
		{UserID: "u1", RetellID: "A2", Questions: []string{}},
		{UserID: "u1", RetellID: "A1", Questions: []string{}},
	}, nil).Once()

	rr := serveProfile(t, profiles, agents, &middleware.AuthenticatedUser{ID: "u1"})

	require.Equal(t, http.StatusOK, rr.Code)
	var got domain.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, domain.PlanPaid, got.Plan)
	require.NotNil(t, got.Agent)
	assert.Equal(t, "A2", got.Agent.RetellID)
}

func TestProfileHandler_FallsBackToEmailKeyedAgents(t *testing.T) {
	profiles := new(MockProfileRepository)
	agents := new(MockAgentRepository)
	profiles.On("GetByID", mock.Anything, "u1").Return(&domain.Profile{ID: "u1", Email: "u1@example.com"}, nil).Once()
	agents.On("ListByUserID", mock.Anything, "u1").Return([]*domain.AgentRecord{}, nil).Once()
	agents.On("ListByUserID", mock.Anything, "u1@example.com").Return([]*domain.AgentRecord{{RetellID: "A9"}}, nil).Once()

	rr := serveProfile(t, profiles, agents, &middleware.AuthenticatedUser{ID: "u1"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"retell_id":"A9"`)
	agents.AssertExpectations(t)
}

func TestProfileHandler_Errors(t *testing.T) {
	t.Run("Unauthenticated", func(t *testing.T) {
		rr := serveProfile(t, new(MockProfileRepository), new(MockAgentRepository), nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		profiles.On("GetByID", mock.Anything, "u1").Return(nil, domain.ErrNotFound).Once()
		rr := serveProfile(t, profiles, new(MockAgentRepository), &middleware.AuthenticatedUser{ID: "u1"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("AgentLookupFails", func(t *testing.T) {
		profiles := new(MockProfileRepository)
		agents := new(MockAgentRepository)
		profiles.On("GetByID", mock.Anything, "u1").Return(&domain.Profile{ID: "u1"}, nil).Once()
		agents.On("ListByUserID", mock.Anything, "u1").Return(nil, errors.New("db down")).Once()
		rr := serveProfile(t, profiles, agents, &middleware.AuthenticatedUser{ID: "u1"})
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
