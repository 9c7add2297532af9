package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePath(t *testing.T) {
	got, err := DerivePath("/flac", "/recordings/2022-05-14/meadow-north/data/SMU01770_20220514_223000.wav")
	require.NoError(t, err)
	assert.Equal(t,
		filepath.Join("/flac", "2022-05-14", "meadow-north", "data", "SMU01770_20220514_223000.flac"),
		got)
}

func TestDerivePathMirrorsSegments(t *testing.T) {
	// The date and location segments are taken relative to the file, so
	// nesting above them does not leak into the destination.
	got, err := DerivePath("/archive/flac", "/mnt/nas/season-2022/2022-06-01/city-park/data/rec.wav")
	require.NoError(t, err)
	assert.Equal(t,
		filepath.Join("/archive/flac", "2022-06-01", "city-park", "data", "rec.flac"),
		got)
}

func TestDerivePathTooShallow(t *testing.T) {
	_, err := DerivePath("/flac", "rec.wav")
	assert.Error(t, err)
}
