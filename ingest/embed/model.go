package embed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// ModelDir is the on-disk cache for downloaded ONNX models.
const ModelDir = "./models"

// prepareModel downloads modelName's ONNX weights (if not already cached)
// and returns the local model directory. onnxFilePath, when non-empty,
// pins the specific .onnx file within the model repo.
func prepareModel(modelName, onnxFilePath string) (string, error) {
	sanitized := strings.ReplaceAll(modelName, "/", "_")
	modelPath := filepath.Join(ModelDir, sanitized)

	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat model path: %w", err)
	}

	if err := os.MkdirAll(ModelDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	downloadOptions := hugot.NewDownloadOptions()
	if onnxFilePath != "" {
		downloadOptions.OnnxFilePath = onnxFilePath
	}
	downloadedPath, err := hugot.DownloadModel(modelName, ModelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	return downloadedPath, nil
}
