package ports

import "go.trai.ch/forge/internal/core/domain"

// ConfigLoader defines the interface for resolving the build configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the variant matrix from path, selects the named profile, and
	// applies caller-supplied overrides. Every declared parameter resolves to a
	// concrete value or the load fails with domain.ErrConfiguration.
	Load(path, profile string, overrides map[string]string) (*domain.BuildConfig, error)
}
