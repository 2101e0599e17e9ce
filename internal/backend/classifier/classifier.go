package classifier

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
)

// ImageSize is the square input resolution the model was trained on.
const ImageSize = 224

var ErrModelUnavailable = errors.New("model is not loaded")

// Runner executes one forward pass over a 1x3xImageSizexImageSize NCHW batch
// and returns the raw logits.
type Runner interface {
	Run(input []float32) ([]float32, error)
}

type Prediction struct {
	Label         common.Label             `json:"prediction"`
	Confidence    float64                  `json:"confidence"`
	Probabilities map[common.Label]float64 `json:"probabilities"`
}

// Classifier is read-only after construction and safe to share between requests
// as long as its Runner is.
type Classifier struct {
	runner Runner
	labels []common.Label
}

func NewClassifier(runner Runner) *Classifier {
	return &Classifier{
		runner: runner,
		labels: common.Labels(),
	}
}

// Predict decodes and preprocesses imageData, runs the model and returns the most
// probable label. A nil Classifier yields ErrModelUnavailable.
func (c *Classifier) Predict(imageData []byte) (*Prediction, error) {
	if c == nil || c.runner == nil {
		return nil, ErrModelUnavailable
	}

	img, format, err := DecodeImage(imageData)
	if err != nil {
		return nil, err
	}
	slog.Debug("classifier: decoded image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	input := Preprocess(img, ImageSize)

	logits, err := c.runner.Run(input)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if len(logits) != len(c.labels) {
		return nil, fmt.Errorf("model returned %d outputs, expected %d", len(logits), len(c.labels))
	}

	probabilities := Softmax(logits)
	best := argmax(probabilities)

	prediction := &Prediction{
		Label:         c.labels[best],
		Confidence:    probabilities[best],
		Probabilities: make(map[common.Label]float64, len(c.labels)),
	}
	for i, label := range c.labels {
		prediction.Probabilities[label] = probabilities[i]
	}
	return prediction, nil
}

// Close releases the runner if it holds native resources.
func (c *Classifier) Close() error {
	if c == nil {
		return nil
	}
	if closer, ok := c.runner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Softmax converts logits into probabilities that sum to 1.
func Softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = math.Max(maxLogit, float64(v))
	}
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the first index holding the largest value.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
