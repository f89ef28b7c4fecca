package reader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/format"
	"github.com/JeffersonLab/go-hipo/header"
	"github.com/JeffersonLab/go-hipo/record"
)

// buildUncompressedFile writes a minimal file: a file header followed by
// one record per entry of eventsPerRecord, each holding events of the given sizes.
func buildUncompressedFile(t *testing.T, eventsPerRecord [][]int) []byte {
	t.Helper()

	engine := endian.GetLittleEndianEngine()
	fh := header.NewFileHeader(format.KindHipoFile1, engine)

	buf := make([]byte, header.ByteLength)
	require.NoError(t, header.WriteFileHeader(buf, 0, fh))

	for i, sizes := range eventsPerRecord {
		ro, err := record.NewRecordOutput()
		require.NoError(t, err)
		ro.SetRecordNumber(uint32(i + 1))

		for _, sz := range sizes {
			require.True(t, ro.AddEvent(make([]byte, sz)))
		}

		rec, err := ro.Build()
		require.NoError(t, err)
		buf = append(buf, rec...)
	}

	return buf
}

func TestReader_ScanBufferUncompressed(t *testing.T) {
	buf := buildUncompressedFile(t, [][]int{{20, 24, 28}, {16}})

	// Strip the file header, since ScanBuffer scans records starting at 0.
	recordsOnly := buf[header.ByteLength:]

	r, err := NewBufferReader(recordsOnly)
	require.NoError(t, err)
	require.NoError(t, r.ScanBuffer())

	require.Equal(t, 2, r.RecordCount())
	require.Equal(t, 4, r.MaxEvents())

	ev, err := r.GetEvent(1)
	require.NoError(t, err)
	require.Len(t, ev, 24)

	ev, err = r.GetEvent(3)
	require.NoError(t, err)
	require.Len(t, ev, 16)
}

func TestReader_ScanFileForceScan(t *testing.T) {
	buf := buildUncompressedFile(t, [][]int{{8, 12}, {4}, {16, 16, 16}})

	r, err := NewReader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	require.Equal(t, 3, r.RecordCount())
	require.Equal(t, 6, r.MaxEvents())

	ev, err := r.GetEvent(0)
	require.NoError(t, err)
	require.Len(t, ev, 8)

	ev, err = r.GetEvent(5)
	require.NoError(t, err)
	require.Len(t, ev, 16)
}

func TestReader_SequentialCursor(t *testing.T) {
	buf := buildUncompressedFile(t, [][]int{{4}, {8}, {12}})

	r, err := NewReader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	_, err = r.GetEvent(0)
	require.NoError(t, err)

	ev, err := r.GetNextEvent()
	require.NoError(t, err)
	require.Len(t, ev, 8)

	ev, err = r.GetNextEvent()
	require.NoError(t, err)
	require.Len(t, ev, 12)

	ev, err = r.GetPrevEvent()
	require.NoError(t, err)
	require.Len(t, ev, 8)
}

func TestReader_SequentialCursorFromStart(t *testing.T) {
	buf := buildUncompressedFile(t, [][]int{{4, 8}, {12}})

	r, err := NewReader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	// A fresh cursor starts at event 0 and walks forward in order.
	for _, want := range []int{4, 8, 12} {
		ev, err := r.GetNextEvent()
		require.NoError(t, err)
		require.Len(t, ev, want)
	}

	// Past the last event the cursor yields nil without error.
	ev, err := r.GetNextEvent()
	require.NoError(t, err)
	require.Nil(t, ev)

	// And walking back from the end serves events again.
	ev, err = r.GetPrevEvent()
	require.NoError(t, err)
	require.Len(t, ev, 12)
}

func TestReader_SequentialCursorPastFront(t *testing.T) {
	buf := buildUncompressedFile(t, [][]int{{4, 8}})

	r, err := NewReader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	ev, err := r.GetPrevEvent()
	require.NoError(t, err)
	require.Nil(t, ev)

	// The first forward step after falling off the front is event 0.
	ev, err = r.GetNextEvent()
	require.NoError(t, err)
	require.Len(t, ev, 4)
}

func TestReader_GetEventOutOfRange(t *testing.T) {
	buf := buildUncompressedFile(t, [][]int{{4}})

	r, err := NewReader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	_, err = r.GetEvent(5)
	require.Error(t, err)
}
