// Package grounding maps a natural-language visual target to screen
// coordinates using a vision-capable model. It is the most expensive call in
// the system; callers go through OCR matching first and results are cached.
package grounding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"coact/pkg/events"
	"coact/pkg/types"
)

// Model predicts a screen coordinate for an instruction over a screenshot.
// It is an external collaborator; the HTTP implementation lives in ollama.go
// and tests use a deterministic stub.
type Model interface {
	Predict(ctx context.Context, instruction string, screenshotB64 string) (x, y int, confidence float64, err error)
	Name() string
}

// Adapter wraps a grounding model with caching, result events and the
// low-confidence policy threshold.
type Adapter struct {
	model     Model
	threshold float64
	cache     *lru.Cache[string, types.GroundingResult]
	bc        *events.Broadcaster
	status    *events.StatusBoard
	log       *zap.Logger
}

// NewAdapter builds an adapter. cacheSize bounds the number of remembered
// results; at least one entry is always kept.
func NewAdapter(model Model, threshold float64, cacheSize int, bc *events.Broadcaster, status *events.StatusBoard, log *zap.Logger) (*Adapter, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, types.GroundingResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create grounding cache: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		model:     model,
		threshold: threshold,
		cache:     cache,
		bc:        bc,
		status:    status,
		log:       log,
	}, nil
}

// Threshold returns the configured low-confidence cutoff.
func (a *Adapter) Threshold() float64 { return a.threshold }

// LowConfidence reports whether a result is below the policy threshold.
// This is a flag, not an error: callers apply the fallback chain.
func (a *Adapter) LowConfidence(r types.GroundingResult) bool {
	return r.Confidence < a.threshold
}

// Ground requests a coordinate prediction for the instruction against the
// screenshot. Observers see a start event with nil coordinates and a
// completion event with the final result.
func (a *Adapter) Ground(ctx context.Context, instruction string, screenshotB64 string) (types.GroundingResult, error) {
	key := cacheKey(instruction, screenshotB64)
	if cached, ok := a.cache.Get(key); ok {
		a.log.Debug("grounding cache hit", zap.String("instruction", instruction))
		return cached, nil
	}

	if a.status != nil {
		a.status.Set(events.GroundingModelRole, types.RoleProcessing)
		defer a.status.Set(events.GroundingModelRole, types.RoleIdle)
	}
	if a.bc != nil {
		a.bc.Publish(events.GroundingUpdate(types.GroundingResult{
			ModelName:   a.model.Name(),
			Instruction: instruction,
		}))
	}

	start := time.Now()
	x, y, confidence, err := a.model.Predict(ctx, instruction, screenshotB64)
	elapsed := time.Since(start)
	if err != nil {
		if a.status != nil {
			a.status.Set(events.GroundingModelRole, types.RoleError)
		}
		return types.GroundingResult{}, fmt.Errorf("grounding prediction failed: %w", err)
	}

	result := types.GroundingResult{
		ModelName:      a.model.Name(),
		Instruction:    instruction,
		Coordinates:    &[2]int{x, y},
		Confidence:     confidence,
		ProcessingTime: elapsed,
	}
	a.cache.Add(key, result)

	a.log.Debug("grounding complete",
		zap.String("instruction", instruction),
		zap.Float64("confidence", confidence),
		zap.Duration("elapsed", elapsed))
	if a.bc != nil {
		a.bc.Publish(events.GroundingUpdate(result))
	}
	return result, nil
}

func cacheKey(instruction, screenshotB64 string) string {
	h := sha256.New()
	h.Write([]byte(instruction))
	h.Write([]byte{0})
	h.Write([]byte(screenshotB64))
	return hex.EncodeToString(h.Sum(nil))
}

// coordinatePayload is the JSON shape grounding models are instructed to
// return.
type coordinatePayload struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
}

func parseCoordinates(raw string) (coordinatePayload, error) {
	var p coordinatePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("failed to parse coordinate payload: %w", err)
	}
	return p, nil
}
