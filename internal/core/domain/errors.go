package domain

import "go.trai.ch/zerr"

var (
	// ErrConfiguration is returned when a build parameter is missing or fails validation.
	ErrConfiguration = zerr.New("invalid build configuration")

	// ErrStageAlreadyExists is returned when attempting to add a stage with a name that already exists.
	ErrStageAlreadyExists = zerr.New("stage already exists")

	// ErrMissingDependency is returned when a stage references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing stage dependency")

	// ErrCycleDetected is returned when a cycle is detected in the stage dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrStageNotFound is returned when a requested stage is not found in the graph.
	ErrStageNotFound = zerr.New("stage not found")

	// ErrStageFailed is returned when a stage's execution fails. It aborts the whole pipeline.
	ErrStageFailed = zerr.New("stage execution failed")

	// ErrModelFetch is returned when downloading or verifying a model fails after all
	// fetch-level retries are exhausted.
	ErrModelFetch = zerr.New("model fetch failed")

	// ErrPackaging is returned when the single-binary packager produces a binary that
	// fails its mandatory smoke test.
	ErrPackaging = zerr.New("binary packaging failed")

	// ErrArtifactMissing is returned when a recorded artifact is no longer present on disk.
	ErrArtifactMissing = zerr.New("artifact missing")

	// ErrBuildExecutionFailed is returned by the app layer when the pipeline aborted.
	ErrBuildExecutionFailed = zerr.New("build execution failed")
)
