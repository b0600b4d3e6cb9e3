package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract"

	"coact/pkg/types"
)

// Tesseract recognizes text via the gosseract binding. One client is reused
// across passes; it is not safe for concurrent use, which is fine because
// the session runs strictly sequentially.
type Tesseract struct {
	client *gosseract.Client
}

// NewTesseract creates a recognizer with the default language model.
func NewTesseract() *Tesseract {
	return &Tesseract{client: gosseract.NewClient()}
}

// Recognize returns one element per detected text line. Tesseract reports
// confidence in [0,100]; it is normalized to [0,1] here.
func (t *Tesseract) Recognize(png []byte) ([]types.OCRElement, error) {
	if err := t.client.SetImageFromBytes(png); err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}

	elements := make([]types.OCRElement, 0, len(boxes))
	for _, box := range boxes {
		elements = append(elements, types.OCRElement{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			BBox: types.BBox{
				X:      box.Box.Min.X,
				Y:      box.Box.Min.Y,
				Width:  box.Box.Dx(),
				Height: box.Box.Dy(),
			},
		})
	}
	return elements, nil
}

func (t *Tesseract) Close() error {
	return t.client.Close()
}
