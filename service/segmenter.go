package service

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime initializes the shared ONNX runtime environment. Must be
// called once before any segmenter is created. libPath may be empty to
// use the default library resolution.
func InitRuntime(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// DestroyRuntime tears down the shared ONNX environment.
func DestroyRuntime() {
	_ = ort.DestroyEnvironment()
}

// Segmenter wraps a single semantic-segmentation model session. The
// session reuses its tensors between runs, so Predict is serialized
// with a mutex; everything else is read-only after construction.
type Segmenter struct {
	name         string
	imageSize    int
	numClasses   int
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewSegmenter loads the model at modelPath. Input layout is NHWC
// [1, size, size, 3], output [1, size, size, classes] per-class scores.
func NewSegmenter(name, modelPath string, imageSize, numClasses int) (*Segmenter, error) {
	inputShape := ort.NewShape(1, int64(imageSize), int64(imageSize), 3)
	outputShape := ort.NewShape(1, int64(imageSize), int64(imageSize), int64(numClasses))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session for %s: %w", name, err)
	}

	return &Segmenter{
		name:         name,
		imageSize:    imageSize,
		numClasses:   numClasses,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Segmenter) Name() string {
	return s.name
}

// PredictMask runs inference on an interleaved HWC [0,1] float buffer
// and returns the per-pixel argmax class index, row-major.
func (s *Segmenter) PredictMask(input []float32) ([]int, error) {
	expected := s.imageSize * s.imageSize * 3
	if len(input) != expected {
		return nil, fmt.Errorf("expected %d input values, got %d", expected, len(input))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	output := s.outputTensor.GetData()
	pixels := s.imageSize * s.imageSize
	mask := make([]int, pixels)

	for p := 0; p < pixels; p++ {
		base := p * s.numClasses
		maxIdx := 0
		maxVal := output[base]
		for c := 1; c < s.numClasses; c++ {
			if v := output[base+c]; v > maxVal {
				maxVal = v
				maxIdx = c
			}
		}
		mask[p] = maxIdx
	}

	return mask, nil
}

func (s *Segmenter) Close() {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
}
