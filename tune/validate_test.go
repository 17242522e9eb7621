package tune

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsMatchingBuild(t *testing.T) {
	a := buildFixtureArtifact()
	err := Validate(a, BuildInfo{GPUBackend: BackendCublas, ModelTag: "fixture", QTypeTag: "Q4_0"})
	assert.NoError(t, err)
}

func TestValidateReportsEveryMismatch(t *testing.T) {
	a := buildFixtureArtifact()
	err := Validate(a, BuildInfo{GPUBackend: BackendOpenBlas, ModelTag: "13B", QTypeTag: "Q8_0"})
	assert.True(t, errors.Is(err, ErrArtifactMismatch))
	msg := err.Error()
	assert.Contains(t, msg, "gpu backend mismatch")
	assert.Contains(t, msg, "model mismatch")
	assert.Contains(t, msg, "q_type mismatch")
}
