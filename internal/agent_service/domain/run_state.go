package domain

// RunState tracks a provisioning run through its steps.
type RunState string

const (
	RunReceived             RunState = "RECEIVED"
	RunScriptGenerated      RunState = "SCRIPT_GENERATED"
	RunResourcesProvisioned RunState = "RESOURCES_PROVISIONED"
	RunPersisted            RunState = "PERSISTED"
	RunFailed               RunState = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool { return s == RunPersisted || s == RunFailed }

// EntryPoint records how a run was triggered.
type EntryPoint string

const (
	EntryDirect  EntryPoint = "direct"
	EntryWebhook EntryPoint = "webhook"
	EntryCLI     EntryPoint = "cli"
)
