package transcribe

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
)

// encoderHiddenSize is the encoder's output feature width, matching the
// joint network's expected input width.
const encoderHiddenSize = 512

// maxDecodeSteps bounds the greedy decode loop per encoder frame so a
// pathological joint network (or a corrupt model) can't spin forever.
const maxDecodeSteps = 8

// onnxASR runs a two-graph encoder / joint-decoder ASR model: encoder.onnx
// consumes the full utterance's feature sequence and produces per-frame
// hidden states, decoder_joint.onnx combines one encoder frame with the
// previous-token decoder state to emit a vocabulary distribution. Decoding
// is greedy: at each frame, emit tokens until blank or maxDecodeSteps.
//
// The encoder input length varies per utterance, so it runs through a
// dynamic session with per-call tensors; the joint network's shapes are
// fixed and its tensors are allocated once and reused.
type onnxASR struct {
	encoderSession *ort.DynamicAdvancedSession
	jointSession   *ort.AdvancedSession

	jointEncFrame *ort.Tensor[float32]
	jointPrevTok  *ort.Tensor[float32]
	jointLogits   *ort.Tensor[float32]

	vocab   []string
	blankID int // RNN-T blank symbol, conventionally the last vocab entry
}

// NewONNXModel loads encoder.onnx + decoder_joint.onnx + vocab.txt from dir.
func NewONNXModel(dir string) (Model, error) {
	vocab, err := loadVocab(filepath.Join(dir, "vocab.txt"))
	if err != nil {
		return nil, fmt.Errorf("transcribe: load vocab: %w", err)
	}

	encoderPath := filepath.Join(dir, "encoder.onnx")
	jointPath := filepath.Join(dir, "decoder_joint.onnx")

	encIns, encOuts, err := ort.GetInputOutputInfo(encoderPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: inspect encoder: %w", err)
	}
	if len(encIns) < 1 || len(encOuts) < 1 {
		return nil, fmt.Errorf("transcribe: encoder model exposes no I/O")
	}
	encoderSession, err := ort.NewDynamicAdvancedSession(
		encoderPath,
		[]string{encIns[0].Name},
		[]string{encOuts[0].Name},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("transcribe: create encoder session: %w", err)
	}

	jointEncFrame, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(encoderHiddenSize)))
	if err != nil {
		encoderSession.Destroy()
		return nil, fmt.Errorf("transcribe: alloc joint encoder-frame tensor: %w", err)
	}
	jointPrevTok, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		encoderSession.Destroy()
		jointEncFrame.Destroy()
		return nil, fmt.Errorf("transcribe: alloc joint prev-token tensor: %w", err)
	}
	jointLogits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(vocab))))
	if err != nil {
		encoderSession.Destroy()
		jointEncFrame.Destroy()
		jointPrevTok.Destroy()
		return nil, fmt.Errorf("transcribe: alloc joint logits tensor: %w", err)
	}

	jointIns, jointOuts, err := ort.GetInputOutputInfo(jointPath)
	if err != nil {
		encoderSession.Destroy()
		jointEncFrame.Destroy()
		jointPrevTok.Destroy()
		jointLogits.Destroy()
		return nil, fmt.Errorf("transcribe: inspect joint network: %w", err)
	}
	if len(jointIns) < 2 || len(jointOuts) < 1 {
		encoderSession.Destroy()
		jointEncFrame.Destroy()
		jointPrevTok.Destroy()
		jointLogits.Destroy()
		return nil, fmt.Errorf("transcribe: joint model exposes insufficient I/O")
	}
	jointSession, err := ort.NewAdvancedSession(
		jointPath,
		[]string{jointIns[0].Name, jointIns[1].Name},
		[]string{jointOuts[0].Name},
		[]ort.Value{jointEncFrame, jointPrevTok},
		[]ort.Value{jointLogits},
		nil,
	)
	if err != nil {
		encoderSession.Destroy()
		jointEncFrame.Destroy()
		jointPrevTok.Destroy()
		jointLogits.Destroy()
		return nil, fmt.Errorf("transcribe: create joint session: %w", err)
	}

	return &onnxASR{
		encoderSession: encoderSession,
		jointSession:   jointSession,
		jointEncFrame:  jointEncFrame,
		jointPrevTok:   jointPrevTok,
		jointLogits:    jointLogits,
		vocab:          vocab,
		blankID:        len(vocab) - 1,
	}, nil
}

// Transcribe runs the encoder once over the whole utterance, then greedily
// decodes tokens frame-by-frame through the joint network.
func (m *onnxASR) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	features := extractFeatures(samples, sampleRate)
	featureFrames := len(features) / encoderHiddenSize

	encInput, err := ort.NewTensor(ort.NewShape(1, int64(featureFrames), int64(encoderHiddenSize)), features)
	if err != nil {
		return "", fmt.Errorf("transcribe: alloc encoder input: %w", err)
	}
	defer encInput.Destroy()

	encOutputs := []ort.Value{nil}
	if err := m.encoderSession.Run([]ort.Value{encInput}, encOutputs); err != nil {
		return "", fmt.Errorf("transcribe: encoder inference: %w", err)
	}
	encTensor, ok := encOutputs[0].(*ort.Tensor[float32])
	if !ok {
		return "", fmt.Errorf("transcribe: encoder produced a non-float output")
	}
	defer encTensor.Destroy()
	encoderOut := encTensor.GetData()

	var tokens []int
	prevToken := float32(m.blankID)
	frames := len(encoderOut) / encoderHiddenSize
	for f := 0; f < frames; f++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		start := f * encoderHiddenSize
		copy(m.jointEncFrame.GetData(), encoderOut[start:start+encoderHiddenSize])

		for step := 0; step < maxDecodeSteps; step++ {
			m.jointPrevTok.GetData()[0] = prevToken
			if err := m.jointSession.Run(); err != nil {
				return "", fmt.Errorf("transcribe: joint inference: %w", err)
			}
			token := argmax(m.jointLogits.GetData())
			if token == m.blankID {
				break
			}
			tokens = append(tokens, token)
			prevToken = float32(token)
		}
	}

	return tokensToText(m.vocab, tokens), nil
}

func (m *onnxASR) Close() error {
	m.encoderSession.Destroy()
	m.jointSession.Destroy()
	m.jointEncFrame.Destroy()
	m.jointPrevTok.Destroy()
	m.jointLogits.Destroy()
	return nil
}

func argmax(logits []float32) int {
	best, bestIdx := logits[0], 0
	for i, v := range logits {
		if v > best {
			best, bestIdx = v, i
		}
	}
	return bestIdx
}

func tokensToText(vocab []string, tokens []int) string {
	out := ""
	for _, t := range tokens {
		if t < 0 || t >= len(vocab) {
			continue
		}
		out += vocab[t]
	}
	return out
}

func loadVocab(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vocab []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		vocab = append(vocab, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("transcribe: empty vocab file %s", path)
	}
	return vocab, nil
}
