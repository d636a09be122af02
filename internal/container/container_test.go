package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findex/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.DB.Path = filepath.Join(dir, "findex.db")
	cfg.Categories.File = filepath.Join(dir, "categories.yaml")
	cfg.Classification.KeywordCeiling = 0.70
	cfg.Conflict.AmountTolerance = 0.02
	cfg.Conflict.DuplicateWindowDays = 1
	cfg.Conflict.SimilarityWindowDays = 5
	cfg.Batch.Workers = 2
	cfg.CSV.Delimiter = ","
	return cfg
}

func TestNewContainer_NilConfig(t *testing.T) {
	_, err := NewContainer(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration cannot be nil")
}

func TestNewContainer_WithoutAI(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.NotNil(t, c.GetLogger())
	assert.NotNil(t, c.GetConfig())
	assert.NotNil(t, c.GetDataPointStore())
	assert.NotNil(t, c.GetCategoryStore())
	assert.NotNil(t, c.GetPipeline())
	assert.NotNil(t, c.GetRunner())
	assert.NotNil(t, c.GetTracker())
	assert.NotNil(t, c.GetDetector())
	assert.NotNil(t, c.GetResolver())
	assert.NotNil(t, c.GetValidator())
	assert.NotNil(t, c.GetEngine())
	assert.NotNil(t, c.GetExporter())
}

func TestContainer_Close(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
