package onnx

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX Runtime environment is process-wide; initialize it once.
var runtimeInit struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	runtimeInit.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		runtimeInit.err = ort.InitializeEnvironment()
	})
	return runtimeInit.err
}

// resolveRuntimeLib finds the shared library: ONNXRUNTIME_LIB overrides,
// otherwise we expect it next to the model file.
func resolveRuntimeLib(modelPath string) string {
	if p := os.Getenv("ONNXRUNTIME_LIB"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
}

// session wraps an ONNX inference session for a BERT-style encoder with
// inputs input_ids/attention_mask/token_type_ids and a single
// [batch, seq, hidden] output.
type session struct {
	sess       *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	hiddenDim  int64
}

func newSession(modelPath string) (*session, error) {
	if err := initRuntime(resolveRuntimeLib(modelPath)); err != nil {
		return nil, fmt.Errorf("initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}

	available := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		available[in.Name] = true
	}
	required := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range required {
		if !available[name] {
			return nil, fmt.Errorf("model missing input %q", name)
		}
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("expected [batch, seq, hidden] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(modelPath, required, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session{
		sess:       sess,
		inputNames: required,
		outputName: outputs[0].Name,
		hiddenDim:  dims[2],
	}, nil
}

// infer runs one forward pass over an encoded batch and returns the flat
// [batch * seq * hidden] hidden states.
func (s *session) infer(b encodedBatch) ([]float32, error) {
	shape := ort.NewShape(b.size, b.seqLen)

	tIDs, err := ort.NewTensor(shape, b.ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, b.mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	tTypes, err := ort.NewTensor(shape, b.typeIDs)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(b.size, b.seqLen, s.hiddenDim))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.sess.Run([]ort.Value{tIDs, tMask, tTypes}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (s *session) close() error {
	if s.sess == nil {
		return nil
	}
	return s.sess.Destroy()
}
