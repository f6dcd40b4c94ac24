package domain

import (
	"path/filepath"
	"strings"
)

// ModelKind classifies a prefetched model asset.
type ModelKind string

const (
	// ModelEmbedding is the sentence embedding model.
	ModelEmbedding ModelKind = "embedding"
	// ModelReranking is the optional cross-encoder reranking model.
	ModelReranking ModelKind = "reranking"
	// ModelWhisper is the optional speech transcription model.
	ModelWhisper ModelKind = "whisper"
	// ModelTokenizer is the tokenizer encoding data.
	ModelTokenizer ModelKind = "tokenizer"
)

// Storage-efficient precisions forced at prefetch time. Inference always runs
// on CPU during the build, regardless of the accelerator flag.
const (
	PrecisionFloat16 = "float16"
	PrecisionInt8    = "int8"
	PrecisionNone    = "none"
)

// ModelKey identifies one model cache entry. Identical keys always resolve to
// byte-identical cache contents, which allows cross-build reuse.
type ModelKey struct {
	Kind      ModelKind
	ID        string
	Precision string
}

// CachePath returns the deterministic cache location for this key under base.
func (k ModelKey) CachePath(base string) string {
	return filepath.Join(base, string(k.Kind), sanitizeModelID(k.ID), k.Precision)
}

// String returns the canonical textual form of the key.
func (k ModelKey) String() string {
	return string(k.Kind) + "/" + k.ID + "@" + k.Precision
}

// sanitizeModelID maps a model identifier to a filesystem-safe path segment.
// Hub identifiers use "org/name"; the separator is flattened the same way the
// upstream hub cache does.
func sanitizeModelID(id string) string {
	return strings.NewReplacer("/", "--", ":", "-").Replace(id)
}

// ModelSet derives the model cache entries a configuration requires. Disabled
// optionals produce no entry; the runtime contract still names them with the
// disabled sentinel.
func ModelSet(cfg *BuildConfig) []ModelKey {
	keys := []ModelKey{
		{Kind: ModelEmbedding, ID: cfg.EmbeddingModel, Precision: PrecisionFloat16},
		{Kind: ModelTokenizer, ID: cfg.TokenizerEncoding, Precision: PrecisionNone},
	}
	if cfg.RerankingEnabled() {
		keys = append(keys, ModelKey{Kind: ModelReranking, ID: cfg.RerankingModel, Precision: PrecisionFloat16})
	}
	if cfg.WhisperEnabled() {
		keys = append(keys, ModelKey{Kind: ModelWhisper, ID: cfg.WhisperModel, Precision: PrecisionInt8})
	}
	return keys
}
