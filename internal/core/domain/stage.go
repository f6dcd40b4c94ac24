package domain

import "time"

// StageKind identifies which runner executes a stage.
type StageKind string

const (
	// KindFrontend compiles the web client into a static asset tree.
	KindFrontend StageKind = "frontend"
	// KindBackendEnv resolves the backend package set into a relocatable environment.
	KindBackendEnv StageKind = "backend-env"
	// KindModels materializes ML model weights and tokenizer data into the cache.
	KindModels StageKind = "models"
	// KindBinary compiles environment, source and models into one executable.
	KindBinary StageKind = "binary"
	// KindAssemble merges stage outputs into the final runtime filesystem.
	KindAssemble StageKind = "assemble"
)

// Stage represents one isolated unit of the build pipeline producing exactly
// one artifact. Edges between stages are artifact dependencies.
type Stage struct {
	Name InternedString
	Kind StageKind

	// Needs lists the stages whose artifacts this stage consumes.
	Needs []InternedString

	// Tools declares the hermetic toolchain the stage runs in, as alias->spec
	// pairs (e.g. "node" -> "nodejs@22"). Build-time tooling never leaks into
	// the produced artifact unless the runner copies it explicitly.
	Tools map[string]string

	// ConfigKeys scopes the stage's cache key to the configuration parameters
	// it actually reads. A stage is never invalidated by a parameter outside
	// this set.
	ConfigKeys []string

	// Timeout bounds the stage's execution; zero means no stage-local bound.
	Timeout time.Duration
}

// Command is a single process invocation executed inside a stage's
// hermetic environment.
type Command struct {
	Argv []string
	Dir  string

	// Env holds stage-level overrides applied on top of the hermetic environment.
	Env map[string]string
}
