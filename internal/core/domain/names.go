package domain

// Canonical stage names. The planner builds the pipeline from these and
// runners address their inputs with them.
var (
	StageFrontend   = NewInternedString("frontend")
	StageBackendEnv = NewInternedString("backend-env")
	StageModels     = NewInternedString("models")
	StageBinary     = NewInternedString("binary")
	StageAssemble   = NewInternedString("assemble")
)
