package engine

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `[{"paths":["a-shard1"],"weights":[{"name":"w","shape":[1],"dtype":"float32"}]}]`, false},
		{"empty array", `[]`, true},
		{"group without paths", `[{"paths":[],"weights":[]}]`, true},
		{"not json", `{{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBundleValidate(t *testing.T) {
	group := WeightGroup{
		Paths: []string{"m-shard1", "m-shard2"},
		Weights: []WeightSpec{
			{Name: "conv/filters", Shape: []int{3, 3, 3, 16}, Dtype: "float32", Quantization: &Quantization{Dtype: "uint8"}},
			{Name: "conv/bias", Shape: []int{16}, Dtype: "float32"},
			{Name: "scalar", Shape: []int{}, Dtype: "int32"},
		},
	}

	// 432 quantized bytes + 64 + 4
	ok := &ModelBundle{
		Name:     "m",
		Manifest: []WeightGroup{group},
		Shards:   map[string][]byte{"m-shard1": make([]byte, 400), "m-shard2": make([]byte, 100)},
	}
	assert.NoError(t, ok.Validate())

	short := &ModelBundle{
		Name:     "m",
		Manifest: []WeightGroup{group},
		Shards:   map[string][]byte{"m-shard1": make([]byte, 400), "m-shard2": make([]byte, 99)},
	}
	assert.ErrorContains(t, short.Validate(), "declare 500")

	missing := &ModelBundle{
		Name:     "m",
		Manifest: []WeightGroup{group},
		Shards:   map[string][]byte{"m-shard1": make([]byte, 500)},
	}
	assert.ErrorContains(t, missing.Validate(), "m-shard2")

	badType := &ModelBundle{
		Name:     "m",
		Manifest: []WeightGroup{{Paths: []string{"x"}, Weights: []WeightSpec{{Name: "s", Shape: []int{1}, Dtype: "string"}}}},
		Shards:   map[string][]byte{"x": {1}},
	}
	assert.ErrorContains(t, badType.Validate(), "unsupported dtype")
}

func TestLoadBundle(t *testing.T) {
	fsys := fstest.MapFS{
		ManifestFile(ModelAgeGender): &fstest.MapFile{Data: []byte(`[{"paths":["age_gender_model-shard1"],"weights":[{"name":"fc/age/weights","shape":[2],"dtype":"float32"}]}]`)},
		"age_gender_model-shard1":    &fstest.MapFile{Data: make([]byte, 8)},
	}

	bundle, err := LoadBundle(context.Background(), NewFSStore(fsys), ModelAgeGender)
	require.NoError(t, err)
	assert.Equal(t, ModelAgeGender, bundle.Name)
	assert.Len(t, bundle.Shards["age_gender_model-shard1"], 8)

	_, err = LoadBundle(context.Background(), NewFSStore(fsys), ModelFaceExpression)
	assert.ErrorContains(t, err, ManifestFile(ModelFaceExpression))
}

func TestDirStoreRejectsEscapingPaths(t *testing.T) {
	store := NewDirStore(t.TempDir())
	_, err := store.Open(context.Background(), "../etc/passwd")
	assert.ErrorContains(t, err, "invalid model asset path")
}
