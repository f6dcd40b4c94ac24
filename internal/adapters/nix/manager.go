package nix

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PackageManager = (*Manager)(nil)

// Manager implements ports.PackageManager using the Nix CLI.
type Manager struct{}

// NewManager creates a new PackageManager backed by the Nix CLI.
func NewManager() *Manager {
	return &Manager{}
}

// Install ensures the tool from the specific commit is available in the Nix store.
// Returns the absolute store path of the tool's environment.
func (m *Manager) Install(ctx context.Context, toolName, commitHash string) (string, error) {
	flakeRef := fmt.Sprintf("github:NixOS/nixpkgs/%s#%s", commitHash, toolName)

	//nolint:gosec // flakeRef is constructed from validated inputs
	cmd := exec.CommandContext(ctx, "nix", "build", "--json", "--no-link", flakeRef)

	output, err := cmd.Output()
	if err != nil {
		installErr := zerr.With(zerr.Wrap(err, "nix install failed"), "tool", toolName)
		installErr = zerr.With(installErr, "commit", commitHash)
		if exitErr, ok := err.(*exec.ExitError); ok {
			installErr = zerr.With(installErr, "stderr", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", installErr
	}

	var results buildResults
	if err := json.Unmarshal(output, &results); err != nil {
		parseErr := zerr.With(zerr.Wrap(err, "failed to parse nix build output"), "tool", toolName)
		return "", zerr.With(parseErr, "commit", commitHash)
	}

	if len(results) == 0 {
		emptyErr := zerr.With(zerr.New("empty build results from nix build"), "tool", toolName)
		return "", zerr.With(emptyErr, "commit", commitHash)
	}

	storePath, ok := results[0].Outputs["out"]
	if !ok || storePath == "" {
		outErr := zerr.With(zerr.New("no 'out' output in nix build results"), "tool", toolName)
		return "", zerr.With(outErr, "commit", commitHash)
	}

	return storePath, nil
}
