package capability

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coact/pkg/computer"
	"coact/pkg/events"
	"coact/pkg/ocr"
	"coact/pkg/types"
)

// GUIOperator capability set: pointer, keyboard, screen capture and
// OCR-targeted click variants. Shell execution is deliberately absent; an
// attempt fails with ErrCapabilityDenied, never a silent downgrade.
const (
	ActionMoveMouse         = "move_mouse"
	ActionLeftClick         = "left_click"
	ActionRightClick        = "right_click"
	ActionDoubleClick       = "double_click"
	ActionDrag              = "drag"
	ActionTypeText          = "type_text"
	ActionPressKey          = "press_key"
	ActionHotkey            = "hotkey"
	ActionScreenshot        = "screenshot"
	ActionScreenSize        = "get_screen_size"
	ActionClickOCRText      = "click_ocr_text"
	ActionRightClickOCRText = "right_click_ocr_text"
	ActionDoubleClickOCR    = "double_click_ocr_text"
)

// GenerationParam carries the OCR pass generation an element id was read
// from. The GUI operator attaches it before each OCR-targeted invocation so
// references to superseded screenshots fail instead of clicking blind.
const GenerationParam = "generation"

// NewGUIOperatorProxy builds the GUI operator's restricted action surface.
// OCR-targeted actions resolve ids through the processor and click at the
// element's bounding box center.
func NewGUIOperatorProxy(surface computer.Surface, ocrProc *ocr.Processor, timeout time.Duration, bc *events.Broadcaster, log *zap.Logger) *Proxy {
	p := newProxy(types.RoleGUIOperator, timeout, bc, log)

	p.register(ActionMoveMouse, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		x, y, err := pointParams(params)
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.MoveMouse(ctx, x, y); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: fmt.Sprintf("Moved mouse to (%d, %d)", x, y)}, nil
	})

	click := func(button computer.MouseButton, double bool) handlerFunc {
		return func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
			x, y, err := pointParams(params)
			if err != nil {
				return types.ActionResult{}, err
			}
			if err := surface.Click(ctx, x, y, button, double); err != nil {
				return types.ActionResult{}, err
			}
			return types.ActionResult{Output: fmt.Sprintf("Clicked at (%d, %d)", x, y)}, nil
		}
	}
	p.register(ActionLeftClick, click(computer.ButtonLeft, false))
	p.register(ActionRightClick, click(computer.ButtonRight, false))
	p.register(ActionDoubleClick, click(computer.ButtonLeft, true))

	p.register(ActionDrag, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		fromX, err := intParam(params, "from_x")
		if err != nil {
			return types.ActionResult{}, err
		}
		fromY, err := intParam(params, "from_y")
		if err != nil {
			return types.ActionResult{}, err
		}
		toX, err := intParam(params, "to_x")
		if err != nil {
			return types.ActionResult{}, err
		}
		toY, err := intParam(params, "to_y")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.Drag(ctx, fromX, fromY, toX, toY); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{
			Output: fmt.Sprintf("Dragged from (%d, %d) to (%d, %d)", fromX, fromY, toX, toY),
		}, nil
	})

	p.register(ActionTypeText, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		text, err := stringParam(params, "text")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.TypeText(ctx, text); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: fmt.Sprintf("Typed %d characters", len(text))}, nil
	})

	p.register(ActionPressKey, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		key, err := stringParam(params, "key")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.PressKey(ctx, key); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: "Pressed " + key}, nil
	})

	p.register(ActionHotkey, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		keys, err := stringSliceParam(params, "keys")
		if err != nil {
			return types.ActionResult{}, err
		}
		if err := surface.Hotkey(ctx, keys...); err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: fmt.Sprintf("Pressed chord %v", keys)}, nil
	})

	p.register(ActionScreenshot, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		png, err := surface.CaptureScreen(ctx)
		if err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{
			ScreenshotB64: base64.StdEncoding.EncodeToString(png),
		}, nil
	})

	p.register(ActionScreenSize, func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
		w, h, err := surface.ScreenSize(ctx)
		if err != nil {
			return types.ActionResult{}, err
		}
		return types.ActionResult{Output: fmt.Sprintf("%dx%d", w, h)}, nil
	})

	ocrClick := func(button computer.MouseButton, double bool, verb string) handlerFunc {
		return func(ctx context.Context, params map[string]any) (types.ActionResult, error) {
			id, err := intParam(params, "ocr_id")
			if err != nil {
				return types.ActionResult{}, err
			}
			gen, err := intParam(params, GenerationParam)
			if err != nil {
				return types.ActionResult{}, err
			}
			el, err := ocrProc.Resolve(gen, id)
			if err != nil {
				return types.ActionResult{}, err
			}
			x, y := el.BBox.Center()
			if err := surface.Click(ctx, x, y, button, double); err != nil {
				return types.ActionResult{}, err
			}
			return types.ActionResult{
				Output: fmt.Sprintf("Successfully %s OCR text element %q at (%d, %d)", verb, el.Text, x, y),
			}, nil
		}
	}
	p.register(ActionClickOCRText, ocrClick(computer.ButtonLeft, false, "clicked"))
	p.register(ActionRightClickOCRText, ocrClick(computer.ButtonRight, false, "right-clicked"))
	p.register(ActionDoubleClickOCR, ocrClick(computer.ButtonLeft, true, "double-clicked"))

	return p
}

// NewOrchestratorProxy has no actions at all: the orchestrator only plans
// and delegates. Any invocation fails with ErrCapabilityDenied.
func NewOrchestratorProxy(bc *events.Broadcaster, log *zap.Logger) *Proxy {
	return newProxy(types.RoleOrchestrator, time.Second, bc, log)
}

func pointParams(params map[string]any) (int, int, error) {
	x, err := intParam(params, "x")
	if err != nil {
		return 0, 0, err
	}
	y, err := intParam(params, "y")
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func stringSliceParam(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	switch s := v.(type) {
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q must be a list of strings", key)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q must be a list of strings", key)
	}
}
