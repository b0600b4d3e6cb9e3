package grounding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coact/pkg/events"
	"coact/pkg/types"
)

type stubModel struct {
	x, y       int
	confidence float64
	err        error
	calls      int
}

func (s *stubModel) Predict(ctx context.Context, instruction, screenshotB64 string) (int, int, float64, error) {
	s.calls++
	if s.err != nil {
		return 0, 0, 0, s.err
	}
	return s.x, s.y, s.confidence, nil
}

func (s *stubModel) Name() string { return "stub-grounder" }

func TestGroundReturnsPrediction(t *testing.T) {
	model := &stubModel{x: 640, y: 360, confidence: 0.9}
	a, err := NewAdapter(model, 0.5, 8, nil, nil, nil)
	require.NoError(t, err)

	res, err := a.Ground(context.Background(), "the login button", "c2hvdA==")
	require.NoError(t, err)
	require.NotNil(t, res.Coordinates)
	assert.Equal(t, [2]int{640, 360}, *res.Coordinates)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Equal(t, "stub-grounder", res.ModelName)
	assert.False(t, a.LowConfidence(res))
}

func TestGroundCachesByInstructionAndScreenshot(t *testing.T) {
	model := &stubModel{x: 10, y: 20, confidence: 0.8}
	a, err := NewAdapter(model, 0.5, 8, nil, nil, nil)
	require.NoError(t, err)

	_, err = a.Ground(context.Background(), "the save icon", "shot-a")
	require.NoError(t, err)
	_, err = a.Ground(context.Background(), "the save icon", "shot-a")
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)

	// A different screenshot is a different key.
	_, err = a.Ground(context.Background(), "the save icon", "shot-b")
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
}

func TestGroundPublishesStartAndCompletion(t *testing.T) {
	bc := events.NewBroadcaster(nil)
	defer bc.Close()
	ch, cancel := bc.Subscribe(8)
	defer cancel()

	model := &stubModel{x: 5, y: 6, confidence: 0.7}
	a, err := NewAdapter(model, 0.5, 8, bc, nil, nil)
	require.NoError(t, err)

	_, err = a.Ground(context.Background(), "the close button", "shot")
	require.NoError(t, err)

	start := <-ch
	require.Equal(t, events.TypeGroundingUpdate, start.Type)
	startData := start.Data.(events.GroundingUpdateData)
	assert.Nil(t, startData.Coordinates)
	assert.Equal(t, "the close button", startData.Instruction)

	done := <-ch
	require.Equal(t, events.TypeGroundingUpdate, done.Type)
	doneData := done.Data.(events.GroundingUpdateData)
	require.NotNil(t, doneData.Coordinates)
	assert.Equal(t, [2]int{5, 6}, *doneData.Coordinates)
	assert.Equal(t, 0.7, doneData.Confidence)
}

func TestGroundLowConfidenceFlag(t *testing.T) {
	model := &stubModel{x: 1, y: 1, confidence: 0.3}
	a, err := NewAdapter(model, 0.5, 8, nil, nil, nil)
	require.NoError(t, err)

	res, err := a.Ground(context.Background(), "the tiny icon", "shot")
	require.NoError(t, err)
	// Low confidence is reported, not an error.
	assert.True(t, a.LowConfidence(res))
}

func TestGroundModelFailure(t *testing.T) {
	bc := events.NewBroadcaster(nil)
	defer bc.Close()
	board := events.NewStatusBoard(bc)
	ch, cancel := bc.Subscribe(16)
	defer cancel()

	model := &stubModel{err: errors.New("model offline")}
	a, err := NewAdapter(model, 0.5, 8, bc, board, nil)
	require.NoError(t, err)

	_, err = a.Ground(context.Background(), "anything", "shot")
	require.Error(t, err)

	var sawError bool
	for len(ch) > 0 {
		evt := <-ch
		if evt.Type == events.TypeAgentState {
			if evt.Data.(events.AgentStateData).GroundingModel == types.RoleError {
				sawError = true
			}
		}
	}
	assert.True(t, sawError, "failure must surface on the status board")
}

func TestParseCoordinates(t *testing.T) {
	p, err := parseCoordinates(`{"x": 120, "y": 340, "confidence": 0.85}`)
	require.NoError(t, err)
	assert.Equal(t, 120, p.X)
	assert.Equal(t, 340, p.Y)
	assert.Equal(t, 0.85, p.Confidence)

	_, err = parseCoordinates("not json")
	require.Error(t, err)
}
