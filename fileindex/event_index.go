// Package fileindex maps global event numbers onto the record that holds
// them: a cumulative per-record event count, plus a cursor that walks it the
// way a sequential reader does.
package fileindex

import "sort"

// EventIndex is a cumulative-count sequence over the records of one file or
// buffer scan: R[0] = 0 and R[k+1]-R[k] is the event count of record k. It
// also holds a cursor (currentEvent, currentRecord, intraRecord) that
// Reader advances as callers pull events in order.
//
// An EventIndex grows monotonically as records are discovered during a scan
// and is cleared by Reset before a re-scan.
type EventIndex struct {
	r []uint32

	currentEvent int
	currentRecord int
	intraRecord   int
}

// New returns an empty EventIndex, R = [0].
func New() *EventIndex {
	return &EventIndex{r: []uint32{0}}
}

// Reset clears the index back to R = [0] and resets the cursor.
func (x *EventIndex) Reset() {
	x.r = x.r[:1]
	x.r[0] = 0
	x.currentEvent, x.currentRecord, x.intraRecord = 0, 0, 0
}

// AddRecord appends one record's event count to R.
func (x *EventIndex) AddRecord(eventCount uint32) {
	x.r = append(x.r, x.r[len(x.r)-1]+eventCount)
}

// RecordCount returns the number of records indexed so far.
func (x *EventIndex) RecordCount() int { return len(x.r) - 1 }

// MaxEvents returns R's last element: the total number of events indexed.
func (x *EventIndex) MaxEvents() uint32 { return x.r[len(x.r)-1] }

// CurrentEvent, CurrentRecord, and IntraRecord report the cursor's current
// position: CurrentRecord holds CurrentEvent, and IntraRecord is its
// zero-based position within that record.
func (x *EventIndex) CurrentEvent() int  { return x.currentEvent }
func (x *EventIndex) CurrentRecord() int { return x.currentRecord }
func (x *EventIndex) IntraRecord() int   { return x.intraRecord }

// Locate returns the record holding global event e and e's zero-based
// position within it, without moving the cursor. ok is false when e is out
// of range.
func (x *EventIndex) Locate(e int) (record, intra int, ok bool) {
	if e < 0 || e >= int(x.MaxEvents()) {
		return 0, 0, false
	}

	i := sort.Search(len(x.r), func(i int) bool { return x.r[i] > uint32(e) }) - 1

	return i, e - int(x.r[i]), true
}

// SetEvent moves the cursor to global event e. It returns true iff the
// record the cursor now points at changed. Out-of-range e leaves the cursor
// untouched and returns false.
func (x *EventIndex) SetEvent(e int) bool {
	if e < 0 || e >= int(x.MaxEvents()) {
		return false
	}

	i := sort.Search(len(x.r), func(i int) bool { return x.r[i] > uint32(e) }) - 1

	changed := i != x.currentRecord
	x.currentRecord = i
	x.currentEvent = e
	x.intraRecord = e - int(x.r[i])

	return changed
}

// Advance moves the cursor to the next event. It returns true iff that
// crossed into a new record. At the last event, it returns false and leaves
// the cursor unchanged.
func (x *EventIndex) Advance() bool {
	if x.currentEvent+1 >= int(x.MaxEvents()) {
		return false
	}

	if x.currentEvent+1 < int(x.r[x.currentRecord+1]) {
		x.currentEvent++
		x.intraRecord++

		return false
	}

	x.currentEvent++
	x.currentRecord++
	x.intraRecord = 0

	return true
}

// Retreat moves the cursor to the previous event. It returns true iff that
// crossed into a previous record. At event 0, it returns false and leaves
// the cursor unchanged.
func (x *EventIndex) Retreat() bool {
	if x.currentEvent == 0 {
		return false
	}

	if x.intraRecord > 0 {
		x.currentEvent--
		x.intraRecord--

		return false
	}

	x.currentEvent--
	x.currentRecord--
	x.intraRecord = x.currentEvent - int(x.r[x.currentRecord])

	return true
}
