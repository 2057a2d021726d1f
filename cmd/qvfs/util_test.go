package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsArchivePath(t *testing.T) {
	t.Parallel()

	assert.True(t, isArchivePath("foo.pk3"))
	assert.True(t, isArchivePath("FOO.PK3"))
	assert.True(t, isArchivePath("foo.zip"))
	assert.True(t, isArchivePath("foo.pak"))
	assert.False(t, isArchivePath("foo.txt"))
	assert.False(t, isArchivePath("/some/dir"))
}

func TestOpenSinglePack_MissingFileFails(t *testing.T) {
	t.Parallel()

	_, _, err := openSinglePack("/no/such/archive.pk3")
	require.Error(t, err)
}

func TestBuildSearchPaths_MixedArchiveAndDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	pakPath := filepath.Join(dir, "data.pak")
	writeMinimalPAK(t, pakPath)

	v := newTestVFS(t)

	paths, err := buildSearchPaths(v, []string{pakPath, dir})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, 0, paths[0].PathID)
	assert.Equal(t, 1, paths[1].PathID)
	assert.Equal(t, dir, paths[1].Directory)
}

func TestBuildSearchPaths_MissingArchiveFails(t *testing.T) {
	t.Parallel()

	v := newTestVFS(t)

	_, err := buildSearchPaths(v, []string{"/no/such/archive.pk3"})
	require.Error(t, err)
}
