package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProvisioningRequestVersion is the schema version written by EncodeProvisioningRequest.
const ProvisioningRequestVersion = 1

// Metadata keys carried on the checkout session. MetadataKeyRequest holds the
// versioned envelope; the flat keys are kept for callbacks from sessions
// created before the envelope existed.
const (
	MetadataKeyRequest     = "provisioning_request"
	MetadataKeyQuestions   = "questions"
	MetadataKeyUserID      = "user_id"
	MetadataKeyPhoneNumber = "phone_number"
)

// ProvisioningRequest is the transient input to one provisioning run.
type ProvisioningRequest struct {
	Questions           []string `json:"questions"`
	RequesterID         string   `json:"requester_id"`
	ExistingPhoneNumber string   `json:"existing_phone_number,omitempty"`
}

type provisioningRequestEnvelope struct {
	Version int `json:"v"`
	ProvisioningRequest
}

// Validate checks the fields every entry point requires.
func (r ProvisioningRequest) Validate() error {
	if strings.TrimSpace(r.RequesterID) == "" {
		return Validationf("requester id is required")
	}
	return nil
}

// EncodeProvisioningRequest serializes r into the versioned envelope.
func EncodeProvisioningRequest(r ProvisioningRequest) (string, error) {
	if r.Questions == nil {
		r.Questions = []string{}
	}
	b, err := json.Marshal(provisioningRequestEnvelope{Version: ProvisioningRequestVersion, ProvisioningRequest: r})
	if err != nil {
		return "", fmt.Errorf("encoding provisioning request: %w", err)
	}
	return string(b), nil
}

// DecodeProvisioningRequest parses an envelope produced by EncodeProvisioningRequest.
func DecodeProvisioningRequest(s string) (ProvisioningRequest, error) {
	var env provisioningRequestEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return ProvisioningRequest{}, fmt.Errorf("decoding provisioning request: %w", err)
	}
	switch env.Version {
	case ProvisioningRequestVersion:
		return env.ProvisioningRequest, nil
	default:
		return ProvisioningRequest{}, fmt.Errorf("%w: %d", ErrUnsupportedRequestVersion, env.Version)
	}
}

// EncodeQuestions renders questions as the JSON array stored under MetadataKeyQuestions.
func EncodeQuestions(questions []string) string {
	if questions == nil {
		questions = []string{}
	}
	b, _ := json.Marshal(questions) // a []string always marshals
	return string(b)
}

// ProvisioningRequestFromMetadata rebuilds a request from checkout metadata,
// preferring the versioned envelope and falling back to the flat keys.
func ProvisioningRequestFromMetadata(md map[string]string) (ProvisioningRequest, error) {
	if raw, ok := md[MetadataKeyRequest]; ok && raw != "" {
		return DecodeProvisioningRequest(raw)
	}

	req := ProvisioningRequest{
		RequesterID:         md[MetadataKeyUserID],
		ExistingPhoneNumber: md[MetadataKeyPhoneNumber],
		Questions:           []string{},
	}
	if raw := md[MetadataKeyQuestions]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Questions); err != nil {
			return ProvisioningRequest{}, fmt.Errorf("decoding legacy questions metadata: %w", err)
		}
	}
	return req, nil
}
