package domain_test

import (
	"slices"
	"strings"
	"testing"

	"go.trai.ch/forge/internal/core/domain"
)

func TestSelectBackendPackages_CPUOnly(t *testing.T) {
	cfg := &domain.BuildConfig{
		Accelerator:      false,
		RequirementsFile: "requirements.txt",
	}

	sel := domain.SelectBackendPackages(cfg)

	if sel.ExtraIndexURL == "" {
		t.Fatal("CPU-only profile must select the CPU wheel index")
	}
	if !strings.Contains(sel.ExtraIndexURL, "cpu") {
		t.Errorf("extra index %q does not look like a CPU wheel index", sel.ExtraIndexURL)
	}
	if !slices.Contains(sel.Requirements, "requirements.txt") {
		t.Errorf("expected requirements.txt in %v", sel.Requirements)
	}
}

func TestSelectBackendPackages_Accelerator(t *testing.T) {
	cfg := &domain.BuildConfig{
		Accelerator:      true,
		RequirementsFile: "requirements.txt",
	}

	sel := domain.SelectBackendPackages(cfg)

	// Accelerator builds use the default index; no CPU override.
	if sel.ExtraIndexURL != "" {
		t.Errorf("accelerator profile must not override the wheel index, got %q", sel.ExtraIndexURL)
	}
}

func TestSelectBackendPackages_Pure(t *testing.T) {
	cfg := &domain.BuildConfig{RequirementsFile: "requirements.txt"}

	a := domain.SelectBackendPackages(cfg)
	b := domain.SelectBackendPackages(cfg)

	if !slices.Equal(a.Requirements, b.Requirements) || a.ExtraIndexURL != b.ExtraIndexURL {
		t.Error("selection is not deterministic for equal configurations")
	}
}
