package vfs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "loose.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestHandle_UniversalInvariants_Loose(t *testing.T) {
	data := []byte("0123456789")
	path := writeTempFile(t, data)

	b, err := openLooseBackend(path)
	require.NoError(t, err)
	h := newHandle(b, nil)

	require.EqualValues(t, 0, h.Tell())
	require.EqualValues(t, len(data), h.Size())
	require.False(t, h.Eof())

	for p := int64(0); p <= int64(len(data)); p++ {
		require.NoError(t, h.Seek(p, SeekSet))
		require.Equal(t, p, h.Tell())
	}

	require.NoError(t, h.Seek(int64(len(data)), SeekSet))
	require.True(t, h.Eof())

	n, err := h.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 0, n)
}

func TestHandle_SeekThenReadAllMatchesSuffix(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	path := writeTempFile(t, data)

	for p := 0; p < len(data); p++ {
		b, err := openLooseBackend(path)
		require.NoError(t, err)
		h := newHandle(b, nil)

		require.NoError(t, h.Seek(int64(p), SeekSet))

		got := make([]byte, len(data)-p)
		n, err := h.Read(got)
		require.True(t, err == nil || err == io.EOF)
		assert.Equal(t, len(got), n)
		assert.Equal(t, data[p:], got)
	}
}

func TestHandle_IgnoreBytes_EndTrim(t *testing.T) {
	data := make([]byte, 1000)
	path := writeTempFile(t, data)

	b, err := openLooseBackend(path)
	require.NoError(t, err)
	h := newHandle(b, nil)

	require.NoError(t, h.IgnoreBytes(128, SeekEnd))
	require.EqualValues(t, 872, h.Size())

	require.NoError(t, h.Seek(0, SeekEnd))
	require.EqualValues(t, 872, h.Tell())

	n, err := h.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 0, n)

	// Reset restores the original visible region.
	require.NoError(t, h.IgnoreBytes(0, SeekSet))
	require.EqualValues(t, 1000, h.Size())
}

func TestHandle_IgnoreBytes_StartTrim(t *testing.T) {
	data := []byte("HEADER1234567890PAYLOAD")
	path := writeTempFile(t, data)

	b, err := openLooseBackend(path)
	require.NoError(t, err)
	h := newHandle(b, nil)

	require.NoError(t, h.IgnoreBytes(16, SeekSet))
	require.EqualValues(t, len(data)-16, h.Size())
	require.EqualValues(t, 0, h.Tell())

	got := make([]byte, 7)
	n, err := h.Read(got)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "PAYLOAD", string(got))
}

func TestHandle_GetLine(t *testing.T) {
	data := []byte("first\r\nsecond\nthird")
	path := writeTempFile(t, data)

	b, err := openLooseBackend(path)
	require.NoError(t, err)
	h := newHandle(b, nil)

	buf := make([]byte, 64)

	line, ok := h.GetLine(buf)
	require.True(t, ok)
	assert.Equal(t, "first", line)

	line, ok = h.GetLine(buf)
	require.True(t, ok)
	assert.Equal(t, "second", line)

	line, ok = h.GetLine(buf)
	require.True(t, ok)
	assert.Equal(t, "third", line)

	_, ok = h.GetLine(buf)
	assert.False(t, ok)
}

func TestHandle_GetLine_Truncation(t *testing.T) {
	data := []byte("abcdefghij\n")
	path := writeTempFile(t, data)

	b, err := openLooseBackend(path)
	require.NoError(t, err)
	h := newHandle(b, nil)

	buf := make([]byte, 5) // room for 4 visible chars + terminator
	line, ok := h.GetLine(buf)
	require.True(t, ok)
	assert.Equal(t, "abcd", line)
}

func TestHandle_Read_IncrementsTotalBytesRead(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	path := writeTempFile(t, data)

	b, err := openLooseBackend(path)
	require.NoError(t, err)

	m := &Metrics{}
	h := newHandle(b, m)

	n, err := h.Read(make([]byte, 10))
	require.NoError(t, err)
	require.Equal(t, 10, n)
	assert.EqualValues(t, 10, m.TotalBytesRead.Load())

	n, err = h.Read(make([]byte, 5))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.EqualValues(t, 15, m.TotalBytesRead.Load())

	_, err = h.Read(make([]byte, len(data)))
	require.True(t, err == nil || err == io.EOF) //nolint:errorlint
	assert.EqualValues(t, len(data), m.TotalBytesRead.Load())
}

func TestHandle_SeekOutOfRangeFails(t *testing.T) {
	data := []byte("12345")
	path := writeTempFile(t, data)

	b, err := openLooseBackend(path)
	require.NoError(t, err)
	h := newHandle(b, nil)

	require.Error(t, h.Seek(100, SeekSet))
	require.Error(t, h.Seek(-1, SeekSet))
}
