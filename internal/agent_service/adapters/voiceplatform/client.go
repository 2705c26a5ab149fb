package voiceplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

const (
	DefaultRequestTimeout = 30 * time.Second

	pathCreateLLM         = "/create-retell-llm"
	pathCreateAgent       = "/create-agent"
	pathCreatePhoneNumber = "/create-phone-number"
	pathDeleteAgent       = "/delete-agent/"
	pathDeleteLLM         = "/delete-retell-llm/"

	maxErrorBody = 512
)

// Config configures the voice platform client.
type Config struct {
	BaseURL                  string
	APIKey                   string
	RequestTimeout           time.Duration
	Compensate               bool
	DataCollectionWebhookURL string
}

// Client provisions agents on the voice platform's REST API.
type Client struct {
	cfg        Config
	template   *AgentTemplate
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.ResourceProvisioner = (*Client)(nil)

// NewClient builds a client. A nil template uses the embedded default and a
// nil httpClient uses a plain client; per-call deadlines come from cfg.RequestTimeout.
func NewClient(cfg Config, template *AgentTemplate, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("voice platform base URL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if template == nil {
		var err error
		if template, err = ParseAgentTemplate(nil); err != nil {
			return nil, err
		}
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:        cfg,
		template:   template,
		httpClient: httpClient,
		logger:     logger.With("component", "voice_platform"),
	}, nil
}

type createLLMRequest struct {
	Model         string           `json:"model"`
	GeneralPrompt string           `json:"general_prompt"`
	GeneralTools  []map[string]any `json:"general_tools"`
	BeginMessage  string           `json:"begin_message"`
}

type createLLMResponse struct {
	LLMID string `json:"llm_id"`
}

type responseEngine struct {
	Type  string `json:"type"`
	LLMID string `json:"llm_id"`
}

type createAgentRequest struct {
	ResponseEngine          responseEngine `json:"response_engine"`
	VoiceID                 string         `json:"voice_id"`
	AgentName               string         `json:"agent_name"`
	InterruptionSensitivity float64        `json:"interruption_sensitivity"`
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
}

type createPhoneNumberRequest struct {
	InboundAgentID string `json:"inbound_agent_id"`
}

type createPhoneNumberResponse struct {
	PhoneNumber string `json:"phone_number"`
}

// Provision runs the three creation calls strictly in order. Each call
// depends on the id returned by the previous one; a failure stops the chain.
func (c *Client) Provision(ctx context.Context, script domain.ConversationScript) (*domain.ProvisionResult, error) {
	var llmResp createLLMResponse
	err := c.post(ctx, domain.StepLLM, pathCreateLLM, createLLMRequest{
		Model:         c.template.LLM.Model,
		GeneralPrompt: string(script),
		GeneralTools:  c.template.tools(c.cfg.DataCollectionWebhookURL),
		BeginMessage:  c.template.LLM.BeginMessage,
	}, &llmResp)
	if err != nil {
		return nil, err
	}
	if llmResp.LLMID == "" {
		return nil, &domain.ResourceCreationError{Step: domain.StepLLM, StatusCode: http.StatusOK, Err: errors.New("response missing llm_id")}
	}
	c.logger.InfoContext(ctx, "LLM created", "llm_id", llmResp.LLMID)

	var agentResp createAgentResponse
	err = c.post(ctx, domain.StepAgent, pathCreateAgent, createAgentRequest{
		ResponseEngine:          responseEngine{Type: c.template.Agent.ResponseEngineType, LLMID: llmResp.LLMID},
		VoiceID:                 c.template.Agent.VoiceID,
		AgentName:               c.template.Agent.AgentName,
		InterruptionSensitivity: c.template.Agent.InterruptionSensitivity,
	}, &agentResp)
	if err == nil && agentResp.AgentID == "" {
		err = &domain.ResourceCreationError{Step: domain.StepAgent, StatusCode: http.StatusOK, Err: errors.New("response missing agent_id")}
	}
	if err != nil {
		c.compensate(ctx, "", llmResp.LLMID)
		return nil, err
	}
	c.logger.InfoContext(ctx, "Agent created", "agent_id", agentResp.AgentID)

	var phoneResp createPhoneNumberResponse
	err = c.post(ctx, domain.StepPhoneNumber, pathCreatePhoneNumber, createPhoneNumberRequest{
		InboundAgentID: agentResp.AgentID,
	}, &phoneResp)
	if err == nil && phoneResp.PhoneNumber == "" {
		err = &domain.ResourceCreationError{Step: domain.StepPhoneNumber, StatusCode: http.StatusOK, Err: errors.New("response missing phone_number")}
	}
	if err != nil {
		c.compensate(ctx, agentResp.AgentID, llmResp.LLMID)
		return nil, err
	}
	c.logger.InfoContext(ctx, "Phone number created", "phone_number", phoneResp.PhoneNumber)

	return &domain.ProvisionResult{
		LLMID:       llmResp.LLMID,
		AgentID:     agentResp.AgentID,
		PhoneNumber: phoneResp.PhoneNumber,
	}, nil
}

func (c *Client) post(ctx context.Context, step domain.ProvisionStep, path string, body, out any) error {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return &domain.ResourceCreationError{Step: step, Err: fmt.Errorf("marshal request: %w", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return &domain.ResourceCreationError{Step: step, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.ErrorContext(ctx, "Voice platform request failed", "step", step, "error", err)
		return &domain.ResourceCreationError{Step: step, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &domain.ResourceCreationError{Step: step, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		c.logger.WarnContext(ctx, "Voice platform rejected request", "step", step, "status_code", httpResp.StatusCode, "body", msg)
		return &domain.ResourceCreationError{Step: step, StatusCode: httpResp.StatusCode, Err: errors.New(msg)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &domain.ResourceCreationError{Step: step, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// compensate deletes resources created earlier in a failed chain. It only
// logs failures so the caller keeps the original error.
func (c *Client) compensate(ctx context.Context, agentID, llmID string) {
	if !c.cfg.Compensate {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if agentID != "" {
		if err := c.delete(ctx, pathDeleteAgent+agentID); err != nil {
			c.logger.WarnContext(ctx, "Compensation: deleting agent failed", "agent_id", agentID, "error", err)
		} else {
			c.logger.InfoContext(ctx, "Compensation: agent deleted", "agent_id", agentID)
		}
	}
	if llmID != "" {
		if err := c.delete(ctx, pathDeleteLLM+llmID); err != nil {
			c.logger.WarnContext(ctx, "Compensation: deleting llm failed", "llm_id", llmID, "error", err)
		} else {
			c.logger.InfoContext(ctx, "Compensation: llm deleted", "llm_id", llmID)
		}
	}
}

func (c *Client) delete(ctx context.Context, path string) error {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodDelete, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	_, _ = io.Copy(io.Discard, httpResp.Body)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("status %d", httpResp.StatusCode)
	}
	return nil
}
