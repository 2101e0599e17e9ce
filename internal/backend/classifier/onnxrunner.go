package classifier

import (
	"fmt"
	"log/slog"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
	ort "github.com/yalue/onnxruntime_go"
)

// InitializeRuntime loads the ONNX Runtime shared library. An empty libraryPath
// uses the onnxruntime_go default lookup.
func InitializeRuntime(libraryPath string) error {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	slog.Info("ONNX Runtime initialized", "library", libraryPath)
	return nil
}

func DestroyRuntime() {
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Warn("failed to destroy ONNX Runtime environment", "error", err)
	}
}

// OnnxRunner runs an exported classification model. Tensors are allocated per
// call, so concurrent Run calls do not share buffers.
type OnnxRunner struct {
	session     *ort.DynamicAdvancedSession
	inputShape  ort.Shape
	outputShape ort.Shape
}

func NewOnnxRunner(modelPath string, imageSize, classCount int) (*OnnxRunner, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", modelPath)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	slog.Info("ONNX model loaded",
		"path", modelPath,
		"input", inputs[0].Name,
		"output", outputs[0].Name)

	return &OnnxRunner{
		session:     session,
		inputShape:  ort.NewShape(1, 3, int64(imageSize), int64(imageSize)),
		outputShape: ort.NewShape(1, int64(classCount)),
	}, nil
}

func (r *OnnxRunner) Run(input []float32) ([]float32, error) {
	inputTensor, err := ort.NewTensor(r.inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		_ = inputTensor.Destroy()
	}()

	outputTensor, err := ort.NewEmptyTensor[float32](r.outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer func() {
		_ = outputTensor.Destroy()
	}()

	if err := r.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return nil, err
	}

	data := outputTensor.GetData()
	logits := make([]float32, len(data))
	copy(logits, data)
	return logits, nil
}

func (r *OnnxRunner) Close() error {
	if r.session != nil {
		return r.session.Destroy()
	}
	return nil
}

// LoadClassifier builds a Classifier backed by the ONNX model at modelPath.
// InitializeRuntime must have been called.
func LoadClassifier(modelPath string) (*Classifier, error) {
	runner, err := NewOnnxRunner(modelPath, ImageSize, len(common.Labels()))
	if err != nil {
		return nil, err
	}
	return NewClassifier(runner), nil
}
