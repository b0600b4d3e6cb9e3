package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Settings holds the tunable policy values for a session. Iteration and step
// bounds, confidence thresholds and size budgets are deployment policy, not
// fixed constants.
type Settings struct {
	// MaxIterations bounds Planning->Delegated->Evaluating cycles per session.
	MaxIterations int `json:"maxIterations"`
	// MaxSubtaskSteps bounds decision steps inside one specialist subtask.
	MaxSubtaskSteps int `json:"maxSubtaskSteps"`
	// ActionTimeout bounds a single capability invocation.
	ActionTimeout time.Duration `json:"actionTimeout"`

	// GroundingConfidenceThreshold marks grounding results below it as
	// low-confidence, which triggers the GUI operator's fallback chain.
	GroundingConfidenceThreshold float64 `json:"groundingConfidenceThreshold"`
	// OCRTextThreshold drops detected text below this recognition confidence.
	OCRTextThreshold float64 `json:"ocrTextThreshold"`

	// ContextBudget caps the character size of an assembled decision context.
	ContextBudget int `json:"contextBudget"`

	OrchestratorModel string `json:"orchestratorModel"`
	ProgrammerModel   string `json:"programmerModel"`
	GUIOperatorModel  string `json:"guiOperatorModel"`
	GroundingModel    string `json:"groundingModel"`
	LLMEndpoint       string `json:"llmEndpoint"`

	// GroundingCacheSize is the number of grounding results kept to avoid
	// repeated model calls for the same instruction on the same screen.
	GroundingCacheSize int `json:"groundingCacheSize"`

	// ObserverAddr is the websocket listen address for event observers.
	// Empty disables the observer server.
	ObserverAddr string `json:"observerAddr"`

	// AuditPath is the sqlite file recording task execution history.
	AuditPath string `json:"auditPath"`

	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"`
}

// Default returns the policy values used when no settings file exists.
func Default() *Settings {
	return &Settings{
		MaxIterations:                10,
		MaxSubtaskSteps:              5,
		ActionTimeout:                60 * time.Second,
		GroundingConfidenceThreshold: 0.5,
		OCRTextThreshold:             0.9,
		ContextBudget:                16000,
		OrchestratorModel:            "gemma3:12b",
		ProgrammerModel:              "gemma3:12b",
		GUIOperatorModel:             "gemma3:12b",
		GroundingModel:               "gemma3:12b",
		LLMEndpoint:                  "http://localhost:11434",
		GroundingCacheSize:           64,
		ObserverAddr:                 "",
		AuditPath:                    "./coact.db",
		LogLevel:                     "info",
		LogFormat:                    "console",
	}
}

// Load reads settings from path, falling back to defaults when the file does
// not exist. Values missing from the file keep their defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return s, nil
}

// Save writes the settings to path as indented JSON.
func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
