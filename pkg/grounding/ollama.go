package grounding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coact/pkg/llm"
)

// OllamaModel asks a vision-capable model on an Ollama-compatible endpoint
// to locate a target in a screenshot.
type OllamaModel struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaModel builds a grounding model against endpoint (the API base)
// using the named multimodal model.
func NewOllamaModel(endpoint, model string) *OllamaModel {
	return &OllamaModel{
		endpoint: strings.TrimRight(endpoint, "/") + "/api/generate",
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (m *OllamaModel) Name() string { return m.model }

// Predict sends the screenshot and instruction and parses the coordinate
// JSON out of the response.
func (m *OllamaModel) Predict(ctx context.Context, instruction string, screenshotB64 string) (int, int, float64, error) {
	prompt := fmt.Sprintf(`You are a visual grounding model. Locate this target on the screenshot:
%q

Respond with ONLY a JSON object: {"x": <pixel x>, "y": <pixel y>, "confidence": <0..1>}`, instruction)

	payload := map[string]interface{}{
		"model":  m.model,
		"prompt": prompt,
		"images": []string{screenshotB64},
		"format": "json",
		"stream": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to marshal grounding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("grounding request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to decode grounding response: %w", err)
	}

	raw, err := llm.ExtractJSON(parsed.Response)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("no coordinates in grounding response: %w", err)
	}
	coords, err := parseCoordinates(raw)
	if err != nil {
		return 0, 0, 0, err
	}
	return coords.X, coords.Y, coords.Confidence, nil
}
