package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModel(t *testing.T) {
	originalDir := ModelDir
	ModelDir = t.TempDir()
	defer func() { ModelDir = originalDir }()

	t.Run("Return existing model path for names with slash", func(t *testing.T) {
		expectedPath := filepath.Join(ModelDir, "organization_model-name")
		require.NoError(t, os.MkdirAll(expectedPath, 0750))

		path, err := PrepareModel("organization/model-name", "")
		assert.NoError(t, err, "Expected PrepareModel to not return an error for an existing model")
		assert.Equal(t, expectedPath, path, "Expected path to use the sanitized model name")
	})

	t.Run("Return existing model path for names without slash", func(t *testing.T) {
		expectedPath := filepath.Join(ModelDir, "simple-model")
		require.NoError(t, os.MkdirAll(expectedPath, 0750))

		path, err := PrepareModel("simple-model", "onnx/model.onnx")
		assert.NoError(t, err, "Expected PrepareModel to not return an error")
		assert.Equal(t, expectedPath, path, "Expected path to use the model name directly")
	})

	t.Run("Download fails for unknown repository", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping download in short mode")
		}

		_, err := PrepareModel("dealgraph-test/does-not-exist", "onnx/model.onnx")
		assert.Error(t, err, "Expected an error for a model that cannot be downloaded")
		assert.Contains(t, err.Error(), "failed to", "Expected error to describe the failed step")
	})
}
