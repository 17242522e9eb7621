package tune

import (
	"fmt"
	"strings"
)

// BuildInfo describes the running build's identity, for comparison against
// an artifact's tags by Validate.
type BuildInfo struct {
	GPUBackend Backend
	ModelTag   string
	QTypeTag   string
}

// Validate checks that a loaded artifact is usable on the running build:
// gpu_backend_tag, model_tag, and q_type_tag must all match. Every
// mismatched field is reported at once, not just the first.
func Validate(a *Artifact, build BuildInfo) error {
	var problems []string

	if a.GPUBackend != build.GPUBackend {
		problems = append(problems, fmt.Sprintf("gpu backend mismatch: artifact=%v running=%v", a.GPUBackend, build.GPUBackend))
	}
	if a.ModelTag != build.ModelTag {
		problems = append(problems, fmt.Sprintf("model mismatch: artifact=%q expected=%q", a.ModelTag, build.ModelTag))
	}
	if a.QTypeTag != build.QTypeTag {
		problems = append(problems, fmt.Sprintf("q_type mismatch: artifact=%q expected=%q", a.QTypeTag, build.QTypeTag))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrArtifactMismatch, strings.Join(problems, "; "))
	}
	return nil
}
