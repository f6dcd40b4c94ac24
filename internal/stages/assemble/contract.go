package assemble

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
)

// Runtime contract paths, relative to the app directory the entrypoint runs
// from.
const (
	modelCachePath = "data/cache/models"
	tokenizerPath  = "data/cache/models/tokenizer"
)

// RuntimeEnv derives the runtime environment contract from a configuration.
// Every declared variable is present with a concrete value; disabled optionals
// carry an explicit empty value so the application never distinguishes "unset"
// from "disabled".
func RuntimeEnv(cfg *domain.BuildConfig) map[string]string {
	env := map[string]string{
		"HOST": "0.0.0.0",
		"PORT": strconv.Itoa(cfg.Port),

		"RAG_EMBEDDING_MODEL":    cfg.EmbeddingModel,
		"RAG_RERANKING_MODEL":    cfg.RerankingModel,
		"WHISPER_MODEL":          cfg.WhisperModel,
		"TIKTOKEN_ENCODING_NAME": cfg.TokenizerEncoding,

		// Everything was prefetched at build time; the runtime never phones
		// home for weights.
		"HF_HUB_OFFLINE":             "1",
		"HF_HOME":                    modelCachePath,
		"SENTENCE_TRANSFORMERS_HOME": modelCachePath,
		"TIKTOKEN_CACHE_DIR":         tokenizerPath,

		"OMP_NUM_THREADS": "1",

		"SCARF_NO_ANALYTICS":   "true",
		"DO_NOT_TRACK":         "true",
		"ANONYMIZED_TELEMETRY": "false",

		// Placeholder only; the entrypoint generates a persistent key on
		// first start.
		"WEBUI_SECRET_KEY": "",
	}

	if cfg.ExternalRuntime || cfg.Flavor == domain.FlavorOllama {
		env["OLLAMA_BASE_URL"] = "http://127.0.0.1:11434"
	} else {
		env["OLLAMA_BASE_URL"] = ""
	}
	if cfg.Flavor == domain.FlavorCUDA {
		env["USE_CUDA_DOCKER"] = "true"
	} else {
		env["USE_CUDA_DOCKER"] = "false"
	}
	if cfg.Packaging == domain.PackagingEnvironment {
		env["PYTHONPATH"] = "backend/env"
	}

	return env
}

// writeRuntimeEnv persists the contract as sorted KEY=VALUE lines so the file
// is byte-stable across builds with equal configuration.
func writeRuntimeEnv(path string, cfg *domain.BuildConfig) error {
	env := RuntimeEnv(cfg)
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, env[key])
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeEntrypoint emits the start script: load the contract, mint the secret
// key once, exec the backend.
func writeEntrypoint(path string, cfg *domain.BuildConfig) error {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("set -eu\n")
	b.WriteString(`cd "$(dirname "$0")"` + "\n\n")
	b.WriteString("set -a\n. ./runtime.env\nset +a\n\n")
	b.WriteString("if [ -z \"${WEBUI_SECRET_KEY}\" ]; then\n")
	b.WriteString("  if [ ! -f .webui_secret_key ]; then\n")
	b.WriteString("    head -c 12 /dev/random | base64 > .webui_secret_key\n")
	b.WriteString("  fi\n")
	b.WriteString("  WEBUI_SECRET_KEY=$(cat .webui_secret_key)\n")
	b.WriteString("  export WEBUI_SECRET_KEY\n")
	b.WriteString("fi\n\n")

	if cfg.Packaging == domain.PackagingBinary {
		fmt.Fprintf(&b, "exec ./bin/%s\n", "webapp")
	} else {
		b.WriteString("exec python3 backend/main.py\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o755)
}
