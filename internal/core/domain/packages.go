package domain

// PackageSelection is the derived installer input for the backend dependency
// resolver: which wheel index to use and which requirement sets to install.
type PackageSelection struct {
	// IndexURL overrides the default package index; empty means the default.
	IndexURL string
	// ExtraIndexURL is consulted after IndexURL for packages it lacks.
	ExtraIndexURL string
	// Requirements lists the requirement files to install, relative to the backend dir.
	Requirements []string
	// InstallArgs are additional installer arguments.
	InstallArgs []string
}

const cpuWheelIndex = "https://download.pytorch.org/whl/cpu"

// SelectBackendPackages maps a build configuration to a package-set selection.
// It is a pure function so flag-driven inclusion is unit-testable independent
// of actual package resolution.
//
// When the accelerator is disabled, CPU-only builds of accelerator-capable
// libraries are selected; a GPU wheel must never be pulled onto a CPU-only
// host where it would fail at runtime.
func SelectBackendPackages(cfg *BuildConfig) PackageSelection {
	sel := PackageSelection{
		Requirements: []string{cfg.RequirementsFile},
		InstallArgs:  []string{"--no-cache-dir"},
	}

	if !cfg.Accelerator {
		sel.ExtraIndexURL = cpuWheelIndex
	}

	return sel
}
