package ports

import "context"

// DependencyResolver handles resolving a tool version to a specific Nixpkgs commit.
type DependencyResolver interface {
	// Resolve resolves a package identifier (e.g., "nodejs@22") to a Nixpkgs
	// commit hash and attribute path. It should check the cache first, then
	// query the resolution API.
	Resolve(ctx context.Context, alias, version string) (commitHash, attrPath string, err error)
}

// PackageManager handles the fetching and preparation of tools.
type PackageManager interface {
	// Install ensures the tool from the specific commit is available in the Nix store.
	// Returns the absolute path to the tool's environment.
	Install(ctx context.Context, toolName, commitHash string) (storePath string, err error)
}
