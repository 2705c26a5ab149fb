package voiceplatform

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed agent_template.yaml
var defaultTemplate []byte

const logDataToolName = "log_data"

// AgentTemplate holds the static parts of the three request bodies.
type AgentTemplate struct {
	LLM struct {
		Model        string           `yaml:"model"`
		BeginMessage string           `yaml:"begin_message"`
		GeneralTools []map[string]any `yaml:"general_tools"`
	} `yaml:"llm"`
	Agent struct {
		ResponseEngineType      string  `yaml:"response_engine_type"`
		VoiceID                 string  `yaml:"voice_id"`
		AgentName               string  `yaml:"agent_name"`
		InterruptionSensitivity float64 `yaml:"interruption_sensitivity"`
	} `yaml:"agent"`
}

// ParseAgentTemplate decodes a template document. An empty document yields
// the embedded default.
func ParseAgentTemplate(doc []byte) (*AgentTemplate, error) {
	if len(doc) == 0 {
		doc = defaultTemplate
	}
	var tmpl AgentTemplate
	if err := yaml.Unmarshal(doc, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing agent template: %w", err)
	}
	if tmpl.LLM.Model == "" || tmpl.Agent.VoiceID == "" {
		return nil, fmt.Errorf("agent template: llm.model and agent.voice_id are required")
	}
	return &tmpl, nil
}

// tools returns the tool list with the log_data URL replaced when webhookURL is set.
func (t *AgentTemplate) tools(webhookURL string) []map[string]any {
	out := make([]map[string]any, 0, len(t.LLM.GeneralTools))
	for _, tool := range t.LLM.GeneralTools {
		copied := make(map[string]any, len(tool))
		for k, v := range tool {
			copied[k] = v
		}
		if webhookURL != "" && copied["name"] == logDataToolName {
			copied["url"] = webhookURL
		}
		out = append(out, copied)
	}
	return out
}
