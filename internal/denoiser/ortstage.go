package denoiser

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ortStage wraps one DTLN ONNX graph (stage 1 or stage 2) as a Stage. Each
// stage has its own fixed-shape input/output/state tensors reused across
// frames — onnxruntime_go sessions are bound to tensor memory at
// construction, so Run copies into the input tensor rather than allocating
// per call.
type ortStage struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	stateIn   *ort.Tensor[float32]
	stateOut  *ort.Tensor[float32]
}

// NewStage1 loads the magnitude-masking graph (input shape 1x1x257, state
// shape 1x2x128x2) from modelPath.
func NewStage1(modelPath string) (Stage, error) {
	return newOrtStage(modelPath, ort.NewShape(1, 1, int64(FFTBins)))
}

// NewStage2 loads the time-domain refinement graph (input shape 1x1x512,
// state shape 1x2x128x2) from modelPath.
func NewStage2(modelPath string) (Stage, error) {
	return newOrtStage(modelPath, ort.NewShape(1, 1, int64(FrameSize)))
}

func newOrtStage(modelPath string, inputShape ort.Shape) (*ortStage, error) {
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("denoiser: alloc input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("denoiser: alloc output tensor: %w", err)
	}
	stateShape := ort.NewShape(1, 2, 128, 2)
	stateIn, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("denoiser: alloc state-in tensor: %w", err)
	}
	stateOut, err := ort.NewEmptyTensor[float32](stateShape)
	if err != nil {
		input.Destroy()
		output.Destroy()
		stateIn.Destroy()
		return nil, fmt.Errorf("denoiser: alloc state-out tensor: %w", err)
	}

	ins, outs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		input.Destroy()
		output.Destroy()
		stateIn.Destroy()
		stateOut.Destroy()
		return nil, fmt.Errorf("denoiser: inspect model %s: %w", modelPath, err)
	}
	if len(ins) < 2 || len(outs) < 2 {
		input.Destroy()
		output.Destroy()
		stateIn.Destroy()
		stateOut.Destroy()
		return nil, fmt.Errorf("denoiser: model %s does not expose frame+state I/O", modelPath)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{ins[0].Name, ins[1].Name},
		[]string{outs[0].Name, outs[1].Name},
		[]ort.Value{input, stateIn},
		[]ort.Value{output, stateOut},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		stateIn.Destroy()
		stateOut.Destroy()
		return nil, fmt.Errorf("denoiser: create session for %s: %w", modelPath, err)
	}

	return &ortStage{session: session, input: input, output: output, stateIn: stateIn, stateOut: stateOut}, nil
}

func (s *ortStage) Run(input []float32, state []float32) ([]float32, []float32, error) {
	copy(s.input.GetData(), input)
	copy(s.stateIn.GetData(), state)

	if err := s.session.Run(); err != nil {
		return nil, nil, fmt.Errorf("denoiser: inference: %w", err)
	}

	out := append([]float32(nil), s.output.GetData()...)
	nextState := append([]float32(nil), s.stateOut.GetData()...)
	return out, nextState, nil
}

func (s *ortStage) Close() error {
	s.session.Destroy()
	s.input.Destroy()
	s.output.Destroy()
	s.stateIn.Destroy()
	s.stateOut.Destroy()
	return nil
}
