package vad

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ortModel wraps a Silero-style streaming VAD ONNX graph as a Model. The
// graph takes one 512-sample chunk, a recurrent state tensor, and the sample
// rate; it returns a single speech probability plus the next state. Tensors
// are allocated once and reused across chunks, same as the denoiser stages.
type ortModel struct {
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	stateIn  *ort.Tensor[float32]
	stateOut *ort.Tensor[float32]
	sr       *ort.Tensor[int64]
	output   *ort.Tensor[float32]
}

// NewONNXModel loads the VAD graph from modelPath for sampleRate (8000 or
// 16000). The returned Model is not safe for concurrent use; Detector
// serializes access.
func NewONNXModel(modelPath string, sampleRate int) (Model, error) {
	if sampleRate != 8000 && sampleRate != 16000 {
		return nil, ErrUnsupportedSampleRate
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(ChunkSize)))
	if err != nil {
		return nil, fmt.Errorf("vad: alloc input tensor: %w", err)
	}
	stateShape := ort.NewShape(2, 1, 128)
	stateIn, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("vad: alloc state-in tensor: %w", err)
	}
	stateOut, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		stateIn.Destroy()
		return nil, fmt.Errorf("vad: alloc state-out tensor: %w", err)
	}
	sr, err := ort.NewTensor(ort.NewShape(1), []int64{int64(sampleRate)})
	if err != nil {
		input.Destroy()
		stateIn.Destroy()
		stateOut.Destroy()
		return nil, fmt.Errorf("vad: alloc sr tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		stateIn.Destroy()
		stateOut.Destroy()
		sr.Destroy()
		return nil, fmt.Errorf("vad: alloc output tensor: %w", err)
	}

	destroyAll := func() {
		input.Destroy()
		stateIn.Destroy()
		stateOut.Destroy()
		sr.Destroy()
		output.Destroy()
	}

	ins, outs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		destroyAll()
		return nil, fmt.Errorf("vad: inspect model %s: %w", modelPath, err)
	}
	if len(ins) < 3 || len(outs) < 2 {
		destroyAll()
		return nil, fmt.Errorf("vad: model %s does not expose input+state+sr I/O", modelPath)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{ins[0].Name, ins[1].Name, ins[2].Name},
		[]string{outs[0].Name, outs[1].Name},
		[]ort.Value{input, stateIn, sr},
		[]ort.Value{output, stateOut},
		nil,
	)
	if err != nil {
		destroyAll()
		return nil, fmt.Errorf("vad: create session for %s: %w", modelPath, err)
	}

	return &ortModel{session: session, input: input, stateIn: stateIn, stateOut: stateOut, sr: sr, output: output}, nil
}

func (m *ortModel) Probability(chunk []float32) (float32, error) {
	if len(chunk) != ChunkSize {
		return 0, fmt.Errorf("vad: chunk must be %d samples, got %d", ChunkSize, len(chunk))
	}
	copy(m.input.GetData(), chunk)

	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("vad: inference: %w", err)
	}

	// Carry the recurrent state forward into the next chunk.
	copy(m.stateIn.GetData(), m.stateOut.GetData())
	return m.output.GetData()[0], nil
}

func (m *ortModel) Reset() {
	clear(m.stateIn.GetData())
	clear(m.stateOut.GetData())
}

func (m *ortModel) Close() error {
	m.session.Destroy()
	m.input.Destroy()
	m.stateIn.Destroy()
	m.stateOut.Destroy()
	m.sr.Destroy()
	m.output.Destroy()
	return nil
}
