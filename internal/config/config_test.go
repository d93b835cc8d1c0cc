package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mobileNetJob = `
model: MobileNetV2.mlpackage
output: MobileNetV2-labeled.mlpackage
strict: true
labels:
  source: https://storage.googleapis.com/download.tensorflow.org/data/ImageNetLabels.txt
  skip: 1
metadata:
  author: "Original Paper: Mark Sandler, Andrew Howard"
  short_description: Detects the dominant objects present in an image from a set of 1000 categories.
  version: "2.0"
  preview_type: imageClassifier
  user_defined:
    - key: com.example.Source
      value: keras
descriptions:
  inputs:
    - name: input_1
      text: Input image to be classified
  outputs:
    - name: classLabel
      text: Most likely image category
logging:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir for toolchains that predate it.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, mobileNetJob))
	require.NoError(t, err)

	assert.Equal(t, "MobileNetV2.mlpackage", cfg.Model)
	assert.Equal(t, "MobileNetV2-labeled.mlpackage", cfg.Output)
	assert.True(t, cfg.Strict)
	assert.Equal(t, "https://storage.googleapis.com/download.tensorflow.org/data/ImageNetLabels.txt", cfg.Labels.Source)
	assert.Equal(t, 1, cfg.Labels.Skip)
	assert.Equal(t, "2.0", cfg.Metadata.Version)
	assert.Equal(t, "imageClassifier", cfg.Metadata.PreviewType)
	assert.Equal(t, []KeyValue{{Key: "com.example.Source", Value: "keras"}}, cfg.Metadata.UserDefined)
	assert.Equal(t, []FeatureDescription{{Name: "input_1", Text: "Input image to be classified"}}, cfg.Descriptions.Inputs)
	assert.Equal(t, []FeatureDescription{{Name: "classLabel", Text: "Most likely image category"}}, cfg.Descriptions.Outputs)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console, "unset values keep their defaults")

	require.NoError(t, cfg.ValidateJob())
}

func TestLoadWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Error(t, cfg.ValidateJob())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("COREML_RELABEL_LABELS_SOURCE", "imagenet_labels.json")
	t.Setenv("COREML_RELABEL_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "imagenet_labels.json", cfg.Labels.Source)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative skip", func(c *Config) { c.Labels.Skip = -1 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"user defined without key", func(c *Config) { c.Metadata.UserDefined = []KeyValue{{Value: "x"}} }},
		{"description without name", func(c *Config) { c.Descriptions.Outputs = []FeatureDescription{{Text: "x"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestExpandPaths(t *testing.T) {
	t.Setenv("MODELS", "/models")
	cfg := &Config{
		Model:  "$MODELS/in.mlpackage",
		Output: "$MODELS/out.mlpackage",
		Labels: LabelsConfig{Source: "https://example.com/$MODELS"},
	}
	cfg.ExpandPaths()
	assert.Equal(t, "/models/in.mlpackage", cfg.Model)
	assert.Equal(t, "/models/out.mlpackage", cfg.Output)
	assert.Equal(t, "https://example.com/$MODELS", cfg.Labels.Source)
}
