package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_PassValidation(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsEmptyProviderPreference(t *testing.T) {
	cfg := Defaults()
	cfg.ProviderPreference = nil
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroSimilarityWeights(t *testing.T) {
	cfg := Defaults()
	cfg.SimilarityThemeWeight = 0
	cfg.SimilarityPatternWeight = 0
	cfg.SimilarityCosineWeight = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveBackoff(t *testing.T) {
	cfg := Defaults()
	cfg.QueueBackoffBase = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeConfidence(t *testing.T) {
	cfg := Defaults()
	cfg.MinConfidence = 1.5
	assert.Error(t, cfg.Validate())
}

func TestRouterTimeout_ConvertsMillisecondsToDuration(t *testing.T) {
	cfg := Defaults()
	cfg.RouterTimeoutMS = 5000
	assert.Equal(t, 5000, int(cfg.RouterTimeout().Milliseconds()))
}

func TestLoad_MissingConfigDirUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().ExtractionModel, cfg.ExtractionModel)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "extraction_model: \"custom-model\"\nworker_count: 9\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.ExtractionModel)
	assert.Equal(t, 9, cfg.WorkerCount)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "extraction_model: \"from-yaml\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0o644))

	t.Setenv("RECOG_EXTRACTION_MODEL", "from-env")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ExtractionModel)
}
