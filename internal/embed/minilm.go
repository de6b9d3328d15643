// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package embed

import (
	"context"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// Config locates the ONNX model and its tokenizer on disk.
type Config struct {
	ModelPath     string
	TokenizerPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses
	// the platform default search path.
	LibraryPath string
	// Model is the sentence-embedding model name recorded in store
	// archives, e.g. "all-MiniLM-L6-v2".
	Model     string
	Dimension int
	// MaxSeqLen bounds the tokenized sequence length fed to the model.
	// MiniLM has 512 learned positions; longer inputs must be truncated
	// or inference fails. Zero uses the default.
	MaxSeqLen int
}

// MiniLM runs a local MiniLM-family sentence-embedding model through ONNX
// Runtime. Inference is synchronous and CPU-bound; the session is safe for
// concurrent use, so one instance is shared across all requests.
type MiniLM struct {
	tok     *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
	cfg     Config
}

var _ Embedder = (*MiniLM)(nil)

const embedBatchSize = 32

// defaultMaxSeqLen is the positional limit of the MiniLM checkpoints.
const defaultMaxSeqLen = 512

// NewMiniLM loads the tokenizer and ONNX model. Call Close when done.
func NewMiniLM(cfg Config) (*MiniLM, error) {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = defaultMaxSeqLen
	}

	tok, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedModelLoadFailure, "loading tokenizer",
			vtaerr.FieldPath(cfg.TokenizerPath))
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedModelLoadFailure, "initializing onnxruntime")
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedModelLoadFailure, "creating session options")
	}
	defer opts.Destroy()

	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedModelLoadFailure, "setting graph optimization")
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedModelLoadFailure, "creating onnx session",
			vtaerr.FieldPath(cfg.ModelPath), vtaerr.FieldModel(cfg.Model))
	}

	return &MiniLM{tok: tok, session: session, cfg: cfg}, nil
}

func (m *MiniLM) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *MiniLM) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedInferenceFailure, "embedding cancelled")
		}

		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := m.embedBatch(texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}

	return all, nil
}

func (m *MiniLM) embedBatch(texts []string) ([][]float32, error) {
	inputs := make([]tokenizer.EncodeInput, len(texts))
	for i, t := range texts {
		inputs[i] = tokenizer.NewSingleEncodeInput(tokenizer.NewInputSequence(t))
	}

	encodings, err := m.tok.EncodeBatch(inputs, true)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedInferenceFailure, "tokenizing batch")
	}

	inputIDs, attentionMask, tokenTypeIDs, maxLen := buildModelInputs(encodings, m.cfg.MaxSeqLen)

	batch := len(encodings)
	shape := ort.NewShape(int64(batch), int64(maxLen))

	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedInferenceFailure, "creating input_ids tensor")
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedInferenceFailure, "creating attention_mask tensor")
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedInferenceFailure, "creating token_type_ids tensor")
	}
	defer typeTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := m.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeEmbedInferenceFailure, "running inference",
			vtaerr.FieldModel(m.cfg.Model))
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, vtaerr.New(vtaerr.CodeEmbedInferenceFailure, "output tensor is not float32")
	}

	return meanPool(hidden.GetData(), hidden.GetShape(), attentionMask), nil
}

// buildModelInputs flattens a batch of encodings into padded model input
// slices, truncating every sequence (ids and attention mask alike) to
// maxSeqLen. The tokenizer itself carries no truncation configuration, so
// the bound is enforced here; a full forum post can otherwise tokenize
// past the model's positional limit and fail inference.
func buildModelInputs(encodings []tokenizer.Encoding, maxSeqLen int) (inputIDs, attentionMask, tokenTypeIDs []int64, maxLen int) {
	for _, enc := range encodings {
		if l := len(enc.GetIds()); l > maxLen {
			maxLen = l
		}
	}
	if maxLen > maxSeqLen {
		maxLen = maxSeqLen
	}

	batch := len(encodings)
	inputIDs = make([]int64, batch*maxLen)
	attentionMask = make([]int64, batch*maxLen)
	tokenTypeIDs = make([]int64, batch*maxLen)

	for i, enc := range encodings {
		ids := enc.GetIds()
		mask := enc.GetAttentionMask()
		offset := i * maxLen
		for j := 0; j < len(ids) && j < maxLen; j++ {
			inputIDs[offset+j] = int64(ids[j])
			attentionMask[offset+j] = int64(mask[j])
		}
	}

	return inputIDs, attentionMask, tokenTypeIDs, maxLen
}

// meanPool averages token states over the unmasked positions of each
// sequence, the pooling the MiniLM sentence-transformers checkpoints were
// trained with. Data is copied out before the output tensor is destroyed.
func meanPool(data []float32, shape ort.Shape, attentionMask []int64) [][]float32 {
	batch := int(shape[0])
	seqLen := int(shape[1])
	hiddenDim := int(shape[2])

	vecs := make([][]float32, batch)
	for i := 0; i < batch; i++ {
		vec := make([]float32, hiddenDim)
		var count float32

		for j := 0; j < seqLen; j++ {
			if attentionMask[i*seqLen+j] == 0 {
				continue
			}
			count++
			row := (i*seqLen + j) * hiddenDim
			for d := 0; d < hiddenDim; d++ {
				vec[d] += data[row+d]
			}
		}

		if count > 0 {
			for d := range vec {
				vec[d] /= count
			}
		}
		vecs[i] = vec
	}

	return vecs
}

func (m *MiniLM) Dimension() int {
	return m.cfg.Dimension
}

func (m *MiniLM) ModelName() string {
	return m.cfg.Model
}

// Close releases the ONNX session. The shared runtime environment is left
// initialized for other sessions in the process.
func (m *MiniLM) Close() error {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return nil
}
