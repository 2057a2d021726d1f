package vfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildInflator assembles a deflated pk3 fixture and returns an inflator
// bound directly to its single entry, bypassing the Handle layer so the
// internal foffsIn/TotalInflateRestarts counters of spec §8 can be observed.
func buildInflator(t *testing.T, data []byte) (*inflator, *Metrics) {
	t.Helper()

	path := buildPK3(t, []pk3EntrySpec{{name: "d.bin", data: data, method: zip.Deflate}})

	pack, err := openPK3(path, NewOptions())
	require.NoError(t, err)

	f := pack.zr.File[0]
	payloadOffset, err := f.DataOffset()
	require.NoError(t, err)

	m := &Metrics{}
	z := newInflator(pack.src, pack.Filename, payloadOffset, int64(f.CompressedSize64), m)

	return z, m
}

func TestInflator_SequentialReadMatchesSource(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 5000) // 50000 bytes

	z, _ := buildInflator(t, data)
	defer z.Close()

	out := make([]byte, len(data))
	total := 0

	for total < len(out) {
		n, err := z.Read(out[total:])
		total += n
		if err != nil {
			require.ErrorIs(t, err, io.EOF)

			break
		}
		if n == 0 {
			break
		}
	}

	assert.Equal(t, data, out)
}

func TestInflator_InWindowSeekDoesNotConsumeMoreCompressedBytes(t *testing.T) {
	data := bytes.Repeat([]byte("xyzXYZ123-"), 5000) // 50000 bytes

	z, _ := buildInflator(t, data)
	defer z.Close()

	// Prime the output window with one read, staying inside ioBufSize.
	first := make([]byte, 100)
	n, err := z.Read(first)
	require.NoError(t, err)
	require.Equal(t, 100, n)

	foffsBefore := z.in.foffsIn

	// Seeking backward within the already-buffered window must not touch
	// the compressed-input stream at all.
	require.NoError(t, z.Seek(10))
	assert.Equal(t, foffsBefore, z.in.foffsIn)
	assert.EqualValues(t, 10, z.offs())

	second := make([]byte, 5)
	n, err = z.Read(second)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Equal(t, data[10:15], second)
	assert.Equal(t, foffsBefore, z.in.foffsIn)
}

func TestInflator_ForwardSeekDiscardsWithoutRestart(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 10000) // 80000 bytes

	z, m := buildInflator(t, data)
	defer z.Close()

	require.NoError(t, z.Seek(60000))
	assert.EqualValues(t, 60000, z.offs())
	assert.EqualValues(t, 0, m.TotalInflateRestarts.Load())

	buf := make([]byte, 10)
	n, err := z.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	assert.Equal(t, data[60000:60010], buf)
}

func TestInflator_BackwardSeekOutsideWindowRestartsAndRecordsMetric(t *testing.T) {
	data := bytes.Repeat([]byte("qrstuvwx"), 10000) // 80000 bytes

	z, m := buildInflator(t, data)
	defer z.Close()

	// Advance well past the first output window, then seek back to 0.
	require.NoError(t, z.Seek(70000))
	require.NoError(t, z.Seek(0))
	assert.EqualValues(t, 1, m.TotalInflateRestarts.Load())

	buf := make([]byte, 20)
	n, err := z.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 20, n)
	assert.Equal(t, data[0:20], buf)

	// A second backward seek past the window restarts again.
	require.NoError(t, z.Seek(70000))
	require.NoError(t, z.Seek(5))
	assert.EqualValues(t, 2, m.TotalInflateRestarts.Load())
}
