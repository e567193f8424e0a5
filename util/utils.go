package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetAbsolutePath resolves relativePath against the working directory.
// Absolute paths are returned cleaned.
func GetAbsolutePath(relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return filepath.Clean(relativePath), nil
	}

	root, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(root, relativePath), nil
}

func Float64Ptr(f float64) *float64 {
	return &f
}
