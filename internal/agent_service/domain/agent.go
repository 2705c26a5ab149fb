package domain

import (
	"time"

	"github.com/google/uuid"
)

// AgentRecord is the persisted outcome of a provisioning run. PhoneNumber is
// the conflict key for upserts.
type AgentRecord struct {
	ID                uuid.UUID `json:"id"`
	UserID            string    `json:"user_id"`
	PhoneNumber       string    `json:"phone_number"`
	TwilioPhoneNumber string    `json:"twilio_phone_number"`
	LLMID             string    `json:"llm_id"`
	RetellID          string    `json:"retell_id"`
	Questions         []string  `json:"questions"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ConversationScript is the synthesized call script. It may be empty when the
// generative backend returned no content.
type ConversationScript string

// ProvisionStep names one link of the remote resource chain.
type ProvisionStep string

const (
	StepLLM         ProvisionStep = "llm"
	StepAgent       ProvisionStep = "agent"
	StepPhoneNumber ProvisionStep = "phone_number"
)

// ProvisionResult holds the handles returned by the voice platform.
type ProvisionResult struct {
	LLMID       string `json:"llm_id"`
	AgentID     string `json:"agent_id"`
	PhoneNumber string `json:"phone_number"`
}
