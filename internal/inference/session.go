// Package inference wraps ONNX Runtime sessions for the landmark models.
package inference

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Provider selects the execution provider a session asks for
type Provider string

const (
	ProviderCPU    Provider = "cpu"
	ProviderCoreML Provider = "coreml"
)

// ParseProvider parses a provider name
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(s)); p {
	case ProviderCPU, ProviderCoreML:
		return p, nil
	case "":
		return ProviderCPU, nil
	default:
		return "", fmt.Errorf("unknown execution provider %q", s)
	}
}

var (
	initialized bool
	initMu      sync.Mutex
)

// DefaultLibraryPath returns where the ONNX Runtime shared library usually
// lives on this platform
func DefaultLibraryPath() string {
	switch runtime.GOOS {
	case "darwin":
		return "lib/libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// Initialize sets up ONNX Runtime environment (call once at startup).
// An empty libraryPath uses DefaultLibraryPath.
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}

	if libraryPath == "" {
		libraryPath = DefaultLibraryPath()
	}
	ort.SetSharedLibraryPath(libraryPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime from %s: %w", libraryPath, err)
	}

	slog.Debug("onnx runtime initialized", "library", libraryPath)
	initialized = true
	return nil
}

// Shutdown cleans up ONNX Runtime environment
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	initialized = false
	return nil
}

// Session wraps an ONNX Runtime inference session
type Session struct {
	session     *ort.DynamicAdvancedSession
	modelPath   string
	inputNames  []string
	outputNames []string
	provider    Provider
}

// NewSession creates a new inference session from an ONNX model. When the
// requested provider cannot be used the session falls back to the CPU.
func NewSession(modelPath string, inputNames, outputNames []string, provider Provider) (*Session, error) {
	if !initialized {
		return nil, fmt.Errorf("ONNX Runtime not initialized, call Initialize() first")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	used := ProviderCPU
	if provider == ProviderCoreML {
		// Flag 0 = default settings, use Neural Engine + GPU
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			slog.Warn("coreml unavailable, using cpu", "model", modelPath, "error", err)
		} else {
			used = ProviderCoreML
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		inputNames,
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	slog.Info("loaded model", "path", modelPath, "provider", used)
	return &Session{
		session:     session,
		modelPath:   modelPath,
		inputNames:  inputNames,
		outputNames: outputNames,
		provider:    used,
	}, nil
}

// Provider returns the provider the session runs on
func (s *Session) Provider() Provider {
	return s.provider
}

// Run executes inference with the given inputs
func (s *Session) Run(inputs []ort.Value, outputs []ort.Value) error {
	return s.session.Run(inputs, outputs)
}

// Destroy releases session resources
func (s *Session) Destroy() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}

// ModelInfo describes a model's inputs and outputs
type ModelInfo struct {
	Inputs  []ort.InputOutputInfo
	Outputs []ort.InputOutputInfo
}

// Inspect reads the input and output signatures of a model
func Inspect(modelPath string) (*ModelInfo, error) {
	if !initialized {
		return nil, fmt.Errorf("ONNX Runtime not initialized, call Initialize() first")
	}
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", modelPath, err)
	}
	return &ModelInfo{Inputs: inputs, Outputs: outputs}, nil
}

// CreateTensor creates a float32 tensor with the given shape and data
func CreateTensor[T ort.TensorData](shape []int64, data []T) (*ort.Tensor[T], error) {
	return ort.NewTensor(ort.NewShape(shape...), data)
}

// CreateEmptyTensor creates an uninitialized tensor for output
func CreateEmptyTensor[T ort.TensorData](shape []int64) (*ort.Tensor[T], error) {
	size := int64(1)
	for _, dim := range shape {
		size *= dim
	}
	data := make([]T, size)
	return ort.NewTensor(ort.NewShape(shape...), data)
}
