package ports

import "context"

// EnvironmentFactory creates hermetic execution environments from tool specifications.
//
// Implementations are responsible for:
//   - Resolving tool specifications (e.g., "nodejs@22") to concrete packages
//   - Installing/preparing the required tools
//   - Constructing environment variables (PATH, etc.) for hermetic execution
//
//go:generate go run go.uber.org/mock/mockgen -source=environment.go -destination=mocks/mock_environment.go -package=mocks
type EnvironmentFactory interface {
	// GetEnvironment constructs a hermetic environment from a set of tools.
	//
	// The tools map contains alias->spec pairs (e.g., "node" -> "nodejs@22").
	// Returns environment variables as "KEY=VALUE" strings suitable for process execution.
	GetEnvironment(ctx context.Context, tools map[string]string) ([]string, error)
}
