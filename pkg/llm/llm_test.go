package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coact/pkg/types"
)

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision(`{"action": "run_command", "parameters": {"command": "ls"}}`)
	require.NoError(t, err)
	assert.Equal(t, "run_command", d.Action)
	assert.Equal(t, "ls", d.Params["command"])
}

func TestParseDecisionWithSurroundingProse(t *testing.T) {
	raw := "I will take a screenshot now.\n```json\n{\"action\": \"screenshot\", \"parameters\": {}}\n```\nDone."
	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, "screenshot", d.Action)
	assert.Empty(t, d.Params)
}

func TestParseDecisionMissingAction(t *testing.T) {
	_, err := ParseDecision(`{"parameters": {"x": 1}}`)
	require.Error(t, err)
}

func TestParseDecisionNoJSON(t *testing.T) {
	_, err := ParseDecision("I cannot decide.")
	require.Error(t, err)
}

func TestParseDecisionNilParams(t *testing.T) {
	d, err := ParseDecision(`{"action": "done"}`)
	require.NoError(t, err)
	require.NotNil(t, d.Params)
}

func TestExtractJSONObject(t *testing.T) {
	out, err := ExtractJSON("noise {\"a\": 1} trailing")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, out)
}

func TestOllamaDeciderRoundTrip(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{
			Model:    got.Model,
			Response: `{"action": "press_key", "parameters": {"key": "enter"}}`,
		})
	}))
	defer srv.Close()

	d := NewOllamaDecider(srv.URL, "test-model", nil)
	decision, err := d.Decide(context.Background(), []types.Message{
		{Role: "system", Parts: []types.ContentPart{{Text: "You operate a desktop."}}},
		{Role: "user", Parts: []types.ContentPart{
			{Text: "Task: confirm the dialog"},
			{Text: "Current screen:", ImageB64: "c2hvdA=="},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "press_key", decision.Action)
	assert.Equal(t, "enter", decision.Params["key"])

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.Contains(t, got.Prompt, "[system] You operate a desktop.")
	assert.Contains(t, got.Prompt, "[user] Task: confirm the dialog")
	require.Len(t, got.Images, 1)
	assert.Equal(t, "c2hvdA==", got.Images[0])
}

func TestOllamaDeciderBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "no json here"})
	}))
	defer srv.Close()

	d := NewOllamaDecider(srv.URL, "test-model", nil)
	_, err := d.Decide(context.Background(), []types.Message{
		{Role: "user", Parts: []types.ContentPart{{Text: "Task: anything"}}},
	})
	require.Error(t, err)
}
