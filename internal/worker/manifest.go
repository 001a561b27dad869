package worker

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var manifestHeader = []string{"Serial Number", "Product Name", "Input Image Urls", "Output Image Urls"}

// writeManifest writes the per-job output CSV pairing each successful input
// URL with its output path, one row per pair. Returns the file path.
func writeManifest(csvDir, serialNumber, productName string, inputURLs, outputPaths []string) (string, error) {
	if len(inputURLs) != len(outputPaths) {
		return "", fmt.Errorf("manifest pairing mismatch: %d inputs, %d outputs", len(inputURLs), len(outputPaths))
	}

	name := fmt.Sprintf("%s_%s.csv", sanitizeFileToken(serialNumber), strings.ReplaceAll(uuid.New().String(), "-", ""))
	path := filepath.Join(csvDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create manifest file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(manifestHeader); err != nil {
		return "", fmt.Errorf("failed to write manifest header: %w", err)
	}
	for i := range inputURLs {
		row := []string{serialNumber, productName, inputURLs[i], outputPaths[i]}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write manifest row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush manifest: %w", err)
	}

	return path, nil
}

// sanitizeFileToken keeps serial numbers from smuggling path separators into
// the manifest filename.
func sanitizeFileToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
}
