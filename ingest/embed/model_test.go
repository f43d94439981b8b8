package embed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModelReturnsExistingPath(t *testing.T) {
	modelName := "test/mock-model"
	sanitized := "test_mock-model"
	modelPath := filepath.Join(ModelDir, sanitized)

	require.NoError(t, os.MkdirAll(modelPath, 0o750))
	defer os.RemoveAll(modelPath)

	path, err := prepareModel(modelName, "")
	assert.NoError(t, err)
	assert.Equal(t, modelPath, path)
}

func TestPrepareModelSanitizesSlash(t *testing.T) {
	modelName := "organization/model-name"
	expectedPath := filepath.Join(ModelDir, "organization_model-name")

	require.NoError(t, os.MkdirAll(expectedPath, 0o750))
	defer os.RemoveAll(expectedPath)

	path, err := prepareModel(modelName, "")
	assert.NoError(t, err)
	assert.Equal(t, expectedPath, path)
}

func TestPrepareModelNoSlash(t *testing.T) {
	modelName := "simple-model"
	expectedPath := filepath.Join(ModelDir, "simple-model")

	require.NoError(t, os.MkdirAll(expectedPath, 0o750))
	defer os.RemoveAll(expectedPath)

	path, err := prepareModel(modelName, "")
	assert.NoError(t, err)
	assert.Equal(t, expectedPath, path)
}
