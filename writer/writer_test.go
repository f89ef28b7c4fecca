package writer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/reader"
)

func tempFile(t *testing.T) *os.File {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "hipo-writer-*.evio")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}

func reopenForRead(t *testing.T, f *os.File) *os.File {
	t.Helper()

	r, err := os.Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	return r
}

func TestWriter_UncompressedRoundTrip(t *testing.T) {
	f := tempFile(t)

	w, err := Open(f, nil)
	require.NoError(t, err)

	events := [][]byte{make([]byte, 20), make([]byte, 24), make([]byte, 28)}
	for i, ev := range events {
		ev[0] = byte(i + 1)
		ok, err := w.AddEvent(ev)
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, w.Close())

	r, err := reader.NewReader(reopenForRead(t, f))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	require.Equal(t, 1, r.RecordCount())
	require.Equal(t, 3, r.MaxEvents())

	for i, want := range events {
		got, err := r.GetEvent(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestWriter_CompressedRoundTrip(t *testing.T) {
	f := tempFile(t)

	w, err := Open(f, nil, WithCompressionType(format.CompressionLZ4Fast))
	require.NoError(t, err)

	payload := make([]byte, 400)
	for i := range payload {
		payload[i] = byte(i)
	}
	for i := 0; i < 5; i++ {
		ok, err := w.AddEvent(payload)
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, w.Close())

	r, err := reader.NewReader(reopenForRead(t, f))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	require.Equal(t, 5, r.MaxEvents())
	got, err := r.GetEvent(4)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriter_BigEndianFileAutoDetected(t *testing.T) {
	f := tempFile(t)

	w, err := Open(f, nil, WithEndian(endian.GetBigEndianEngine()))
	require.NoError(t, err)

	events := [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8, 9, 10, 11, 12}}
	for _, ev := range events {
		ok, err := w.AddEvent(ev)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, w.Close())

	// A reader seeded with the opposite (default little-endian) order must
	// detect the flip from the magic word and produce identical events.
	r, err := reader.NewReader(reopenForRead(t, f))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	require.Equal(t, len(events), r.MaxEvents())
	for i, want := range events {
		got, err := r.GetEvent(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestWriter_TrailerWithIndex(t *testing.T) {
	f := tempFile(t)

	w, err := Open(f, nil, WithTrailer(true, true))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, err := w.AddEvent(make([]byte, 8))
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, w.flush())
	}

	require.NoError(t, w.Close())

	r, err := reader.NewReader(reopenForRead(t, f))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(false))

	require.Equal(t, 3, r.RecordCount())
	require.Equal(t, 3, r.MaxEvents())
}
