// Package llm is the boundary to the external decision service. The core
// treats it as an opaque function from a bounded context to one decision.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"coact/pkg/types"
)

// Decision is the raw tool choice a model returns: an action name and its
// parameters. Roles translate it into an ActionCall for their capability set.
type Decision struct {
	Action string         `json:"action"`
	Params map[string]any `json:"parameters"`
	Text   string         `json:"-"`
}

// Decider produces exactly one decision per call. The context messages are
// never mutated by the implementation.
type Decider interface {
	Decide(ctx context.Context, messages []types.Message) (Decision, error)
}

// OllamaDecider calls an Ollama-compatible generate endpoint with the text
// and images of the assembled context.
type OllamaDecider struct {
	endpoint string
	model    string
	client   *http.Client
	log      *zap.Logger
}

// NewOllamaDecider builds a decider against endpoint (the API base, e.g.
// http://localhost:11434) using the named model.
func NewOllamaDecider(endpoint, model string, log *zap.Logger) *OllamaDecider {
	if log == nil {
		log = zap.NewNop()
	}
	return &OllamaDecider{
		endpoint: strings.TrimRight(endpoint, "/") + "/api/generate",
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
		log:      log,
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Format string   `json:"format,omitempty"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
}

// Decide flattens the messages into one prompt plus image attachments, asks
// the model for a JSON tool call and parses it.
func (d *OllamaDecider) Decide(ctx context.Context, messages []types.Message) (Decision, error) {
	var prompt strings.Builder
	var images []string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if part.Text != "" {
				fmt.Fprintf(&prompt, "[%s] %s\n", msg.Role, part.Text)
			}
			if part.ImageB64 != "" {
				images = append(images, part.ImageB64)
			}
		}
	}
	prompt.WriteString("\nRespond with a single JSON object: {\"action\": \"<name>\", \"parameters\": {...}}\n")

	body, err := json.Marshal(generateRequest{
		Model:  d.model,
		Prompt: prompt.String(),
		Images: images,
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to marshal decision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return Decision{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("decision request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Decision{}, fmt.Errorf("failed to decode decision response: %w", err)
	}

	decision, err := ParseDecision(parsed.Response)
	if err != nil {
		return Decision{}, err
	}
	d.log.Debug("decision received",
		zap.String("model", d.model),
		zap.String("action", decision.Action))
	return decision, nil
}

// ParseDecision extracts the {"action", "parameters"} object from raw model
// output, tolerating surrounding prose and code fences.
func ParseDecision(raw string) (Decision, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return Decision{}, fmt.Errorf("no decision in model output: %w", err)
	}

	var d Decision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return Decision{}, fmt.Errorf("failed to parse decision: %w", err)
	}
	if d.Action == "" {
		return Decision{}, fmt.Errorf("decision is missing an action name")
	}
	if d.Params == nil {
		d.Params = map[string]any{}
	}
	d.Text = raw
	return d, nil
}
