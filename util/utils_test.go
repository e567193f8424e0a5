package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAbsolutePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := GetAbsolutePath("dev-data/data/tours.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "dev-data", "data", "tours.json"), got)

	abs := filepath.Join(wd, "a", "..", "b")
	got, err = GetAbsolutePath(abs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "b"), got)
}

func TestFloat64Ptr(t *testing.T) {
	p := Float64Ptr(1.5)
	require.NotNil(t, p)
	assert.Equal(t, 1.5, *p)
}
