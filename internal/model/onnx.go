package model

import (
	"encoding/json"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Brownie44l1/exoplanet-api/internal/lightcurve"
)

// Artifact locates an exported model and its metadata file.
type Artifact struct {
	ModelPath    string
	MetadataPath string
}

type ONNXConfig struct {
	// LibraryPath points at the onnxruntime shared library. Empty uses
	// the platform default.
	LibraryPath    string
	IntraOpThreads int
	InterOpThreads int
	Artifacts      map[Variant]Artifact
}

// ONNXLoader owns the process-wide onnxruntime environment and creates
// one session per variant.
type ONNXLoader struct {
	cfg ONNXConfig
}

func NewONNXLoader(cfg ONNXConfig) (*ONNXLoader, error) {
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	return &ONNXLoader{cfg: cfg}, nil
}

func (l *ONNXLoader) Load(v Variant) (Classifier, error) {
	artifact, ok := l.cfg.Artifacts[v]
	if !ok {
		return nil, &ModelLoadError{Variant: v.String(), Err: fmt.Errorf("no artifact configured")}
	}
	fail := func(err error) (Classifier, error) {
		return nil, &ModelLoadError{Variant: v.String(), Path: artifact.ModelPath, Err: err}
	}

	if _, err := os.Stat(artifact.ModelPath); err != nil {
		return fail(err)
	}

	metaFile, err := os.ReadFile(artifact.MetadataPath)
	if err != nil {
		return fail(fmt.Errorf("failed to read metadata: %w", err))
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return fail(fmt.Errorf("failed to parse metadata: %w", err))
	}
	metadata.applyDefaults()
	if metadata.Architecture != "" && metadata.Architecture != v.String() {
		return fail(fmt.Errorf("metadata describes a %s model", metadata.Architecture))
	}
	if err := metadata.Validate(); err != nil {
		return fail(err)
	}
	if err := checkGraphInput(artifact.ModelPath, metadata.InputName); err != nil {
		return fail(err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fail(fmt.Errorf("failed to create session options: %w", err))
	}
	defer options.Destroy()

	if l.cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(l.cfg.IntraOpThreads); err != nil {
			return fail(fmt.Errorf("failed to set intra-op threads: %w", err))
		}
	}
	if l.cfg.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(l.cfg.InterOpThreads); err != nil {
			return fail(fmt.Errorf("failed to set inter-op threads: %w", err))
		}
	}

	session, err := ort.NewDynamicAdvancedSession(artifact.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName}, options)
	if err != nil {
		return fail(fmt.Errorf("failed to create ONNX session: %w", err))
	}

	return &onnxClassifier{
		session:     session,
		metadata:    metadata,
		inputShape:  concrete(metadata.InputShape),
		outputShape: concrete(metadata.OutputShape),
	}, nil
}

// Close releases the onnxruntime environment. Sessions must be closed
// first.
func (l *ONNXLoader) Close() error {
	return ort.DestroyEnvironment()
}

// checkGraphInput cross-checks the metadata against the graph itself so
// a model exported for another input length fails at startup.
func checkGraphInput(modelPath, inputName string) error {
	inputs, _, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("failed to inspect model: %w", err)
	}
	for _, in := range inputs {
		if in.Name != inputName {
			continue
		}
		if in.DataType != ort.TensorElementDataTypeFloat {
			return fmt.Errorf("input %q has element type %v, want float32", in.Name, in.DataType)
		}
		if got := concrete(in.Dimensions); !got.Equal(lightcurve.InputShape) {
			return fmt.Errorf("graph input %q has shape %v, want %v", in.Name, []int64(in.Dimensions), lightcurve.InputShape)
		}
		return nil
	}
	return fmt.Errorf("graph has no input named %q", inputName)
}

// onnxClassifier allocates its tensors per call, so one session serves
// concurrent requests without shared buffers.
type onnxClassifier struct {
	session     *ort.DynamicAdvancedSession
	metadata    Metadata
	inputShape  lightcurve.Shape
	outputShape lightcurve.Shape
}

func (c *onnxClassifier) InputShape() lightcurve.Shape {
	return c.inputShape
}

func (c *onnxClassifier) Predict(t lightcurve.Tensor) (float64, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(c.inputShape...), t.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(c.outputShape...))
	if err != nil {
		return 0, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := c.session.Run([]ort.Value{inputTensor}, []ort.Value{outputTensor}); err != nil {
		return 0, err
	}

	out := outputTensor.GetData()
	if len(out) == 0 {
		return 0, fmt.Errorf("model produced no output")
	}
	return float64(out[0]), nil
}

func (c *onnxClassifier) Close() error {
	if c.session != nil {
		return c.session.Destroy()
	}
	return nil
}
