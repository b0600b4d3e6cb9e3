// Package ocr turns screenshots into labeled, located text elements. Every
// screenshot yields a fresh element set; ids never survive a new pass.
package ocr

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"coact/pkg/events"
	"coact/pkg/types"
)

// Engine recognizes text regions in a PNG image. Confidence is normalized to
// [0,1].
type Engine interface {
	Recognize(png []byte) ([]types.OCRElement, error)
	Close() error
}

// Pass is the result of one OCR run. Generation orders passes; an element id
// is only valid together with the generation it was produced in.
type Pass struct {
	Generation int
	Elements   []types.OCRElement
}

// PromptBlock renders the element list the way the decision step sees it:
// a compact id/text listing.
func (p Pass) PromptBlock() string {
	if len(p.Elements) == 0 {
		return "OCR-DETECTED TEXT ELEMENTS: None found"
	}
	var b strings.Builder
	b.WriteString("OCR-DETECTED TEXT ELEMENTS:")
	for _, el := range p.Elements {
		fmt.Fprintf(&b, "\nID %d: %q (confidence %.2f)", el.ID, el.Text, el.Confidence)
	}
	return b.String()
}

// Match returns the first element whose text contains the target,
// case-insensitively.
func (p Pass) Match(target string) (types.OCRElement, bool) {
	needle := strings.ToLower(strings.TrimSpace(target))
	if needle == "" {
		return types.OCRElement{}, false
	}
	for _, el := range p.Elements {
		if strings.Contains(strings.ToLower(el.Text), needle) {
			return el, true
		}
	}
	return types.OCRElement{}, false
}

// Processor runs OCR passes and resolves element references for clicks.
type Processor struct {
	engine    Engine
	threshold float64
	bc        *events.Broadcaster
	log       *zap.Logger

	mu      sync.Mutex
	current Pass
}

// NewProcessor wires an engine to the broadcaster. Elements below threshold
// confidence are discarded.
func NewProcessor(engine Engine, threshold float64, bc *events.Broadcaster, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		engine:    engine,
		threshold: threshold,
		bc:        bc,
		log:       log,
	}
}

// Process runs a fresh OCR pass over the screenshot. Ids restart from zero:
// a new pass always supersedes the previous one, even on identical pixels.
func (p *Processor) Process(png []byte) (Pass, error) {
	detected, err := p.engine.Recognize(png)
	if err != nil {
		return Pass{}, fmt.Errorf("ocr recognition failed: %w", err)
	}

	elements := make([]types.OCRElement, 0, len(detected))
	for _, el := range detected {
		if el.Confidence < p.threshold {
			continue
		}
		el.ID = len(elements)
		elements = append(elements, el)
	}

	p.mu.Lock()
	p.current = Pass{Generation: p.current.Generation + 1, Elements: elements}
	pass := p.current
	p.mu.Unlock()

	p.log.Debug("ocr pass complete",
		zap.Int("generation", pass.Generation),
		zap.Int("elements", len(elements)))
	if p.bc != nil {
		p.bc.Publish(events.OCRUpdate(elements))
	}
	return pass, nil
}

// Resolve returns the element for id as seen at generation gen. A reference
// from a superseded pass fails with ErrStaleElementReference and must be
// retried after a fresh pass.
func (p *Processor) Resolve(gen, id int) (types.OCRElement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.current.Generation {
		return types.OCRElement{}, fmt.Errorf("%w: generation %d superseded by %d",
			types.ErrStaleElementReference, gen, p.current.Generation)
	}
	if id < 0 || id >= len(p.current.Elements) {
		return types.OCRElement{}, fmt.Errorf("OCR ID %d not found in current pass", id)
	}
	return p.current.Elements[id], nil
}

// Current returns the latest pass.
func (p *Processor) Current() Pass {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
