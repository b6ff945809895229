package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	jsoniter "github.com/json-iterator/go"
)

const (
	ModelTinyFaceDetector = "tiny_face_detector_model"
	ModelFaceLandmark68   = "face_landmark_68_model"
	ModelFaceRecognition  = "face_recognition_model"
	ModelAgeGender        = "age_gender_model"
	ModelFaceExpression   = "face_expression_model"
)

const manifestSuffix = "-weights_manifest.json"

// Models is the fixed set of bundles needed before detection can run.
var Models = []string{
	ModelTinyFaceDetector,
	ModelFaceLandmark68,
	ModelFaceRecognition,
	ModelAgeGender,
	ModelFaceExpression,
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Quantization struct {
	Dtype string  `json:"dtype"`
	Scale float64 `json:"scale,omitempty"`
	Min   float64 `json:"min,omitempty"`
}

type WeightSpec struct {
	Name         string        `json:"name"`
	Shape        []int         `json:"shape"`
	Dtype        string        `json:"dtype"`
	Quantization *Quantization `json:"quantization,omitempty"`
}

type WeightGroup struct {
	Paths   []string     `json:"paths"`
	Weights []WeightSpec `json:"weights"`
}

// ModelBundle is one model's manifest together with the raw shard bytes it references.
type ModelBundle struct {
	Name     string            `json:"name"`
	Manifest []WeightGroup     `json:"manifest"`
	Shards   map[string][]byte `json:"shards"`
}

func ManifestFile(model string) string {
	return model + manifestSuffix
}

var dtypeSizes = map[string]int{
	"float32":   4,
	"int32":     4,
	"bool":      1,
	"complex64": 8,
	"uint8":     1,
	"uint16":    2,
	"float16":   2,
}

func (w WeightSpec) byteSize() (int, error) {
	dtype := w.Dtype
	if w.Quantization != nil && w.Quantization.Dtype != "" {
		dtype = w.Quantization.Dtype
	}

	size, ok := dtypeSizes[dtype]
	if !ok {
		return 0, fmt.Errorf("weight %s: unsupported dtype %q", w.Name, dtype)
	}

	n := 1
	for _, dim := range w.Shape {
		if dim < 0 {
			return 0, fmt.Errorf("weight %s: negative dimension", w.Name)
		}
		n *= dim
	}

	return n * size, nil
}

// ParseManifest decodes a weights manifest and checks its structure.
func ParseManifest(data []byte) ([]WeightGroup, error) {
	var groups []WeightGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("manifest has no weight groups")
	}

	for i, g := range groups {
		if len(g.Paths) == 0 {
			return nil, fmt.Errorf("weight group %d has no shard paths", i)
		}
	}

	return groups, nil
}

// Validate checks that every group's shards hold exactly the bytes its weights declare.
func (b *ModelBundle) Validate() error {
	for i, g := range b.Manifest {
		var expected int
		for _, w := range g.Weights {
			n, err := w.byteSize()
			if err != nil {
				return err
			}
			expected += n
		}

		var actual int
		for _, p := range g.Paths {
			shard, ok := b.Shards[p]
			if !ok || len(shard) == 0 {
				return fmt.Errorf("shard %s is missing or empty", p)
			}
			actual += len(shard)
		}

		if actual != expected {
			return fmt.Errorf("weight group %d: shards hold %d bytes, weights declare %d", i, actual, expected)
		}
	}

	return nil
}

// LoadBundle fetches a model manifest and its shards from the store.
func LoadBundle(ctx context.Context, store ModelStore, model string) (*ModelBundle, error) {
	raw, err := readAll(ctx, store, ManifestFile(model))
	if err != nil {
		return nil, err
	}

	groups, err := ParseManifest(raw)
	if err != nil {
		return nil, err
	}

	bundle := &ModelBundle{
		Name:     model,
		Manifest: groups,
		Shards:   make(map[string][]byte),
	}

	for _, g := range groups {
		for _, p := range g.Paths {
			if _, seen := bundle.Shards[p]; seen {
				continue
			}

			shard, err := readAll(ctx, store, path.Clean(p))
			if err != nil {
				return nil, err
			}
			bundle.Shards[p] = shard
		}
	}

	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	return bundle, nil
}

func readAll(ctx context.Context, store ModelStore, name string) ([]byte, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return buf.Bytes(), nil
}
