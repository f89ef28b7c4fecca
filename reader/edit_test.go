package reader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JeffersonLab/go-hipo/endian"
	"github.com/JeffersonLab/go-hipo/errs"
	"github.com/JeffersonLab/go-hipo/record"
)

// framedEvent builds an EVIO-framed event of the given total word count:
// the leading word holds words-1 and the rest carry a recognizable fill.
func framedEvent(t *testing.T, words int, fill byte) []byte {
	t.Helper()

	ev := make([]byte, words*4)
	endian.GetLittleEndianEngine().PutUint32(ev, uint32(words-1))
	for i := 4; i < len(ev); i++ {
		ev[i] = fill
	}

	return ev
}

func buildFramedBuffer(t *testing.T, events [][]byte) []byte {
	t.Helper()

	ro, err := record.NewRecordOutput()
	require.NoError(t, err)
	ro.SetRecordNumber(1)

	for _, ev := range events {
		require.True(t, ro.AddEvent(ev))
	}

	rec, err := ro.Build()
	require.NoError(t, err)

	out := make([]byte, len(rec))
	copy(out, rec)

	return out
}

func TestReader_AddStructure(t *testing.T) {
	ev0 := framedEvent(t, 3, 0xAA)
	ev1 := framedEvent(t, 2, 0xBB)
	buf := buildFramedBuffer(t, [][]byte{ev0, ev1})

	r, err := NewBufferReader(buf)
	require.NoError(t, err)
	require.NoError(t, r.ScanBuffer())

	payload := []byte{0xCC, 0xCC, 0xCC, 0xCC, 0xDD, 0xDD, 0xDD, 0xDD}
	require.NoError(t, r.AddStructure(0, payload))

	require.Equal(t, 2, r.MaxEvents())

	got, err := r.GetEvent(0)
	require.NoError(t, err)
	require.Len(t, got, len(ev0)+len(payload))

	// The event's own framing word now covers the appended structure.
	words := endian.GetLittleEndianEngine().Uint32(got)
	require.Equal(t, uint32(len(got)/4-1), words)
	require.Equal(t, payload, got[len(ev0):])

	// The neighbouring event is untouched.
	got, err = r.GetEvent(1)
	require.NoError(t, err)
	require.Equal(t, ev1, got)
}

func TestReader_RemoveStructure(t *testing.T) {
	ev0 := framedEvent(t, 4, 0xAA)
	ev1 := framedEvent(t, 2, 0xBB)
	buf := buildFramedBuffer(t, [][]byte{ev0, ev1})

	r, err := NewBufferReader(buf)
	require.NoError(t, err)
	require.NoError(t, r.ScanBuffer())

	require.NoError(t, r.RemoveStructure(0, 4, 8))

	got, err := r.GetEvent(0)
	require.NoError(t, err)
	require.Len(t, got, len(ev0)-8)

	words := endian.GetLittleEndianEngine().Uint32(got)
	require.Equal(t, uint32(len(got)/4-1), words)

	got, err = r.GetEvent(1)
	require.NoError(t, err)
	require.Equal(t, ev1, got)
}

func TestReader_EditRejectsFileReader(t *testing.T) {
	buf := buildUncompressedFile(t, [][]int{{8}})

	r, err := NewReader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NoError(t, r.ScanFile(true))

	err = r.AddStructure(0, make([]byte, 4))
	require.ErrorIs(t, err, errs.NotEditable)
}

func TestReader_RemoveStructureRangeChecks(t *testing.T) {
	ev0 := framedEvent(t, 3, 0xAA)
	buf := buildFramedBuffer(t, [][]byte{ev0})

	r, err := NewBufferReader(buf)
	require.NoError(t, err)
	require.NoError(t, r.ScanBuffer())

	// The leading length word is not removable.
	require.ErrorIs(t, r.RemoveStructure(0, 0, 4), errs.NotEditable)
	// Nor is a range past the event's end.
	require.ErrorIs(t, r.RemoveStructure(0, 4, 64), errs.NotEditable)
}
