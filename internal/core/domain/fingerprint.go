package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GenerateToolsetID creates a deterministic hash from a tools map for
// hermetic environment caching.
func GenerateToolsetID(tools map[string]string) string {
	aliases := make([]string, 0, len(tools))
	for alias := range tools {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)

	var builder strings.Builder
	for _, alias := range aliases {
		builder.WriteString(alias)
		builder.WriteString(":")
		builder.WriteString(tools[alias])
		builder.WriteString(";")
	}

	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}

// StageFingerprint computes the deterministic cache key for a stage: its
// definition, the configuration subset it declares, and the fingerprints of
// the artifacts it consumes. Parameters outside the stage's ConfigKeys never
// contribute, so unrelated configuration changes do not invalidate the stage.
func StageFingerprint(stage *Stage, cfg *BuildConfig, inputs []Artifact) string {
	h := xxhash.New()

	writeField(h, string(stage.Kind))
	writeField(h, stage.Name.String())

	aliases := make([]string, 0, len(stage.Tools))
	for alias := range stage.Tools {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)
	for _, alias := range aliases {
		writeField(h, alias+"="+stage.Tools[alias])
	}
	writeSection(h)

	values := cfg.Values()
	keys := make([]string, len(stage.ConfigKeys))
	copy(keys, stage.ConfigKeys)
	slices.Sort(keys)
	for _, key := range keys {
		writeField(h, key+"="+values[key])
	}
	writeSection(h)

	slices.SortFunc(inputs, func(a, b Artifact) int {
		switch {
		case a.Stage.String() < b.Stage.String():
			return -1
		case a.Stage.String() > b.Stage.String():
			return 1
		default:
			return 0
		}
	})
	for _, in := range inputs {
		writeField(h, in.Stage.String()+"="+in.Fingerprint)
	}

	return fmt.Sprintf("%016x", h.Sum64())
}

func writeField(h *xxhash.Digest, s string) {
	_, _ = h.WriteString(s)
	_, _ = h.Write([]byte{0})
}

func writeSection(h *xxhash.Digest) {
	_, _ = h.Write([]byte{0})
}
