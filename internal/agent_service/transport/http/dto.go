package http

import "github.com/contractor-agent/golang_services/internal/agent_service/domain"

// ProvisionRequestDTO is the body shared by POST /agents and POST /checkout.
type ProvisionRequestDTO struct {
	Questions   []string `json:"questions" validate:"omitempty,max=50,dive,max=1000"`
	UserID      string   `json:"user_id" validate:"omitempty,max=320"`
	PhoneNumber string   `json:"phone_number" validate:"omitempty,e164"`
}

func (d ProvisionRequestDTO) toDomain(requesterID string) domain.ProvisioningRequest {
	return domain.ProvisioningRequest{
		Questions:           d.Questions,
		RequesterID:         requesterID,
		ExistingPhoneNumber: d.PhoneNumber,
	}
}

// CreateAgentResponseDTO mirrors what the frontend expects after provisioning.
type CreateAgentResponseDTO struct {
	Success     bool   `json:"success"`
	AgentID     string `json:"agent_id"`
	LLMID       string `json:"llm_id"`
	PhoneNumber string `json:"phone_number"`
}

type CheckoutResponseDTO struct {
	URL string `json:"url"`
}

type WebhookAckDTO struct {
	Received bool `json:"received"`
}

type GenericErrorResponse struct {
	Error string `json:"error"`
}
