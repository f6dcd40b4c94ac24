package domain

import "time"

// Artifact is the immutable filesystem subtree produced by exactly one stage.
// Consumers copy or read from Root; they never write into it.
type Artifact struct {
	Stage       InternedString
	Fingerprint string
	Root        string
}

// StageRecord is the persisted build information for one stage, used to reuse
// artifacts across builds when the stage's fingerprint is unchanged.
type StageRecord struct {
	StageName   string    `json:"stage_name,omitzero"`
	Fingerprint string    `json:"fingerprint,omitzero"`
	Digest      string    `json:"digest,omitzero"`
	Path        string    `json:"path,omitzero"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
}
