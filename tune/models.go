package tune

import (
	"bytes"
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsFS embed.FS

// modelShapeYAML mirrors one entry of models.yaml's shapes list.
type modelShapeYAML struct {
	N int `yaml:"n"`
	K int `yaml:"k"`
}

// modelYAML mirrors one named model entry of models.yaml.
type modelYAML struct {
	Shapes []modelShapeYAML `yaml:"shapes"`
}

// modelsYAML mirrors the whole of models.yaml. Every top-level key must be
// listed here to satisfy strict KnownFields(true) decoding, matching the
// teacher's defaults.yaml loading convention.
type modelsYAML struct {
	Version string               `yaml:"version"`
	Models  map[string]modelYAML `yaml:"models"`
}

// ModelCatalog maps a model tag (e.g. "7B") to the matmul shapes the
// benchmark harness should sweep for it. It replaces the original tuner's
// hardcoded switch over model names with data loaded from models.yaml, so
// adding a model size needs no code change.
type ModelCatalog struct {
	byTag map[string][]Shape
}

// LoadModelCatalog parses the embedded models.yaml into a ModelCatalog.
func LoadModelCatalog() (*ModelCatalog, error) {
	data, err := modelsFS.ReadFile("models.yaml")
	if err != nil {
		return nil, fmt.Errorf("tune: read models.yaml: %w", err)
	}

	var raw modelsYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tune: parse models.yaml: %w", err)
	}

	cat := &ModelCatalog{byTag: make(map[string][]Shape, len(raw.Models))}
	for tag, m := range raw.Models {
		if len(m.Shapes) == 0 {
			return nil, fmt.Errorf("tune: model %q has no shapes in models.yaml", tag)
		}
		shapes := make([]Shape, len(m.Shapes))
		for i, s := range m.Shapes {
			if s.N <= 0 || s.K <= 0 {
				return nil, fmt.Errorf("tune: model %q shape %d has non-positive dimension (N=%d, K=%d)", tag, i, s.N, s.K)
			}
			shapes[i] = Shape{N: s.N, K: s.K}
		}
		cat.byTag[tag] = shapes
	}
	return cat, nil
}

// Shapes returns the shapes registered for modelTag, and whether it was
// found.
func (c *ModelCatalog) Shapes(modelTag string) ([]Shape, bool) {
	s, ok := c.byTag[modelTag]
	return s, ok
}

// ModelTags returns the known model tags, sorted for deterministic output
// (used by `mulmat-tune bench` to list what's supported when -model is
// unknown).
func (c *ModelCatalog) ModelTags() []string {
	tags := make([]string, 0, len(c.byTag))
	for tag := range c.byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
