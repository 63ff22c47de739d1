package model

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	DeviceAuto = "auto"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// onnxSession owns the session and the tensors bound to it. Run is not
// safe for concurrent use.
type onnxSession struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	device       string
}

func newONNXSession(opts Options, m *Manifest) (*onnxSession, error) {
	if err := inspectModel(opts.ModelPath, m); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(m.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(m.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	devices := []string{opts.Device}
	if opts.Device == "" || opts.Device == DeviceAuto {
		devices = []string{DeviceCUDA, DeviceCPU}
	}

	var lastErr error
	for _, device := range devices {
		session, err := createSession(opts, m, device, inputTensor, outputTensor)
		if err == nil {
			return &onnxSession{
				session:      session,
				inputTensor:  inputTensor,
				outputTensor: outputTensor,
				device:       device,
			}, nil
		}
		logrus.WithError(err).WithField("device", device).Warn("Unable to create inference session")
		lastErr = err
	}

	inputTensor.Destroy()
	outputTensor.Destroy()
	return nil, fmt.Errorf("failed to create ONNX session: %w", lastErr)
}

func createSession(opts Options, m *Manifest, device string, input, output *ort.Tensor[float32]) (*ort.AdvancedSession, error) {
	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer sessionOptions.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	switch device {
	case DeviceCPU:
	case DeviceCUDA:
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("CUDA unavailable: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := sessionOptions.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return nil, fmt.Errorf("CUDA unavailable: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown device %q", device)
	}

	return ort.NewAdvancedSession(opts.ModelPath,
		[]string{m.InputName}, []string{m.OutputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		sessionOptions)
}

// inspectModel compares the graph's declared input and output dimensions
// with the manifest. Dynamic dimensions (<= 0) are not checked.
func inspectModel(modelPath string, m *Manifest) error {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("failed to read model inputs and outputs: %w", err)
	}

	in, ok := findInfo(inputs, m.InputName)
	if !ok {
		return fmt.Errorf("%w: model has no input %q (have %s)", ErrManifestInvalid, m.InputName, infoNames(inputs))
	}
	out, ok := findInfo(outputs, m.OutputName)
	if !ok {
		return fmt.Errorf("%w: model has no output %q (have %s)", ErrManifestInvalid, m.OutputName, infoNames(outputs))
	}

	if err := matchDims(in.Dimensions, m.InputShape); err != nil {
		return fmt.Errorf("%w: input %q: %v", ErrManifestInvalid, m.InputName, err)
	}
	if err := matchDims(out.Dimensions, m.OutputShape); err != nil {
		return fmt.Errorf("%w: output %q: %v", ErrClassMismatch, m.OutputName, err)
	}
	return nil
}

func findInfo(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, bool) {
	for _, info := range infos {
		if info.Name == name {
			return info, true
		}
	}
	return ort.InputOutputInfo{}, false
}

func infoNames(infos []ort.InputOutputInfo) string {
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return strings.Join(names, ", ")
}

func matchDims(declared ort.Shape, expected []int64) error {
	if len(declared) != len(expected) {
		return fmt.Errorf("model declares %v, manifest expects %v", declared, expected)
	}
	for i, d := range declared {
		if d > 0 && d != expected[i] {
			return fmt.Errorf("model declares %v, manifest expects %v", declared, expected)
		}
	}
	return nil
}

func (o *onnxSession) Run(input []float32) ([]float32, error) {
	data := o.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(data), len(input))
	}
	copy(data, input)

	if err := o.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := o.outputTensor.GetData()
	result := make([]float32, len(outputData))
	copy(result, outputData)
	return result, nil
}

func (o *onnxSession) Device() string {
	return o.device
}

func (o *onnxSession) Close() {
	if o.inputTensor != nil {
		o.inputTensor.Destroy()
	}
	if o.outputTensor != nil {
		o.outputTensor.Destroy()
	}
	if o.session != nil {
		o.session.Destroy()
	}
}
