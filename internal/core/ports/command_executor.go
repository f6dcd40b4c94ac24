package ports

import (
	"context"

	"go.trai.ch/forge/internal/core/domain"
)

// CommandExecutor defines the interface for executing commands during a stage.
//
//go:generate go run go.uber.org/mock/mockgen -source=command_executor.go -destination=mocks/mock_command_executor.go -package=mocks
type CommandExecutor interface {
	// Run executes the command with the specified environment.
	//
	// The env parameter contains environment variables in "KEY=VALUE" format,
	// typically provided by an EnvironmentFactory for hermetic execution.
	Run(ctx context.Context, cmd *domain.Command, env []string) error
}
