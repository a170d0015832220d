// Package inference provides ONNX Runtime integration for segmentation
// model inference.
package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes ONNX Runtime environment once.
func initORT() error {
	ortEnvOnce.Do(func() {
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// Session wraps an ONNX Runtime session for a segmentation model that takes
// a float32 NCHW image batch and produces a float32 NCHW score tensor.
type Session struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
	closed  bool
}

// NewSession creates a new ONNX session from a model file.
func NewSession(modelPath string) (*Session, error) {
	// Check file exists
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	if err := initORT(); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }() // Cleanup error doesn't affect success

	// Input/output names used by torchvision segmentation exports.
	inputNames := []string{"input"}
	outputNames := []string{"out"}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Session{session: session}, nil
}

// Infer runs the model on a preprocessed NCHW image batch. dims is the
// input shape (batch, channels, height, width). It returns the raw class
// scores along with the model-reported NCHW output shape; the class count
// and output resolution come from the model, not the input.
func (s *Session) Infer(ctx context.Context, data []float32, dims [4]int64) ([]float32, [4]int64, error) {
	// Check context before expensive operation
	select {
	case <-ctx.Done():
		return nil, [4]int64{}, ctx.Err()
	default:
	}

	want := dims[0] * dims[1] * dims[2] * dims[3]
	if int64(len(data)) != want {
		return nil, [4]int64{}, fmt.Errorf("input length %d does not match shape %v", len(data), dims)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, [4]int64{}, fmt.Errorf("session is closed")
	}

	inputTensor, err := ort.NewTensor(
		ort.NewShape(dims[0], dims[1], dims[2], dims[3]),
		data,
	)
	if err != nil {
		return nil, [4]int64{}, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	inputs := []ort.Value{inputTensor}

	// Output slice - nil entries will be allocated by Run
	outputs := []ort.Value{nil}

	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, [4]int64{}, fmt.Errorf("running inference: %w", err)
	}

	if outputs[0] == nil {
		return nil, [4]int64{}, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	scoreTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, [4]int64{}, fmt.Errorf("unexpected output tensor type")
	}

	outShape := scoreTensor.GetShape()
	if len(outShape) != 4 {
		return nil, [4]int64{}, fmt.Errorf("output rank %d, want 4 (NCHW)", len(outShape))
	}
	var outDims [4]int64
	copy(outDims[:], outShape)

	// Copy output data; the tensor's backing memory dies with Destroy.
	outputData := scoreTensor.GetData()
	scores := make([]float32, len(outputData))
	copy(scores, outputData)

	return scores, outDims, nil
}

// Close releases ONNX resources.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
